package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExportService renders the persisted test-case table as an XLSX
// workbook for download.
type ExportService struct {
	testcases *TestCaseService
}

func NewExportService(testcases *TestCaseService) *ExportService {
	return &ExportService{testcases: testcases}
}

// ExportExcel builds a workbook with one row per stored record.
func (es *ExportService) ExportExcel(ctx context.Context) (*bytes.Buffer, int, error) {
	records, err := es.testcases.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Test Cases"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Record ID", "Test ID", "Feature", "Test Scenario", "Expected Result", "Grounded In", "Created At",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIdx, record := range records {
		row := rowIdx + 2 // Start from row 2 (after headers)
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), record.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), record.Payload.TestID)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), record.Payload.Feature)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), record.Payload.TestScenario)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), record.Payload.ExpectedResult)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), strings.Join(record.Payload.GroundedIn, ", "))
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), record.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, len(records), nil
}
