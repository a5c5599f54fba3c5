// Package extract turns uploaded documents into plain text suitable for
// chunking. Extractors are keyed by declared content type (file
// extension); an unsupported type is a typed error, never a silently
// empty result.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedType marks a document whose declared content type has no
// registered extractor.
var ErrUnsupportedType = errors.New("unsupported document type")

// Extractor converts raw document bytes into plain text.
type Extractor interface {
	Extract(content []byte) (string, error)
}

type extractorFunc func(content []byte) (string, error)

func (f extractorFunc) Extract(content []byte) (string, error) { return f(content) }

var registry = map[string]Extractor{
	".html": extractorFunc(extractHTML),
	".htm":  extractorFunc(extractHTML),
	".md":   extractorFunc(extractPlain),
	".txt":  extractorFunc(extractPlain),
	".json": extractorFunc(extractPlain),
	".pdf":  extractorFunc(extractPDF),
}

// ForFile returns the extractor registered for the file's extension.
func ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ex, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	return ex, nil
}

// Text extracts plain text from a named document in one step.
func Text(filename string, content []byte) (string, error) {
	ex, err := ForFile(filename)
	if err != nil {
		return "", err
	}
	text, err := ex.Extract(content)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", filepath.Base(filename), err)
	}
	return text, nil
}

func extractPlain(content []byte) (string, error) {
	return string(content), nil
}

// extractHTML strips markup to visible text and appends an HTML_ELEMENTS
// listing of interactive attributes. Downstream script synthesis relies on
// that listing staying adjacent to the page text in the indexed chunks.
func extractHTML(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var textBuilder strings.Builder
	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			textBuilder.WriteString(text)
			textBuilder.WriteString("\n")
		}
	})
	text := textBuilder.String()
	if text == "" {
		text = strings.TrimSpace(doc.Text())
	}

	var elements []string
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		attrs := make([]string, 0, 5)
		for _, key := range []string{"id", "name", "class", "type", "placeholder"} {
			if val, exists := s.Attr(key); exists && val != "" {
				attrs = append(attrs, fmt.Sprintf("%s=%q", key, val))
			}
		}
		if len(attrs) == 0 {
			return
		}
		tag := goquery.NodeName(s)
		visible := strings.TrimSpace(s.Text())
		if len(visible) > 60 {
			visible = visible[:60]
		}
		elements = append(elements, fmt.Sprintf("<%s> attrs={%s} text=%s", tag, strings.Join(attrs, " "), visible))
	})

	if len(elements) > 0 {
		text += "\n\nHTML_ELEMENTS:\n" + strings.Join(elements, "\n")
	}

	return text, nil
}

func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			// Skip unreadable pages rather than losing the whole document
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	extracted := textBuilder.String()
	if strings.TrimSpace(extracted) == "" {
		return "", fmt.Errorf("no text extracted from PDF")
	}
	return extracted, nil
}
