package services

import (
	"context"
	"fmt"
	"strings"

	"qa-agent-backend/models"
)

// ScriptService expands one stored test-case record into a runnable
// Selenium script. Expansion is pure templating over the record's fields:
// no retrieved document content, no network access, no external state.
type ScriptService struct {
	testcases *TestCaseService
	targetURL string
}

func NewScriptService(testcases *TestCaseService, targetURL string) *ScriptService {
	return &ScriptService{testcases: testcases, targetURL: targetURL}
}

const seleniumTemplate = `from selenium import webdriver
from selenium.webdriver.common.by import By
from selenium.webdriver.support.ui import WebDriverWait
from selenium.webdriver.support import expected_conditions as EC

driver = webdriver.Chrome()
driver.get("%s")

print("Running Testcase: %s")
print("Scenario: %s")
print("Expected: %s")

WebDriverWait(driver, 10).until(EC.presence_of_element_located((By.TAG_NAME, "body")))

driver.quit()`

// Synthesize renders the script for the record with the given id.
// Unknown ids surface as ErrTestCaseNotFound.
func (ss *ScriptService) Synthesize(ctx context.Context, id string) (string, error) {
	record, err := ss.testcases.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return RenderScript(record.Payload, ss.targetURL), nil
}

// RenderScript fills the script skeleton: open the target page, wait for
// the page body, print the record's fields for traceability.
func RenderScript(payload models.TestCasePayload, targetURL string) string {
	script := fmt.Sprintf(seleniumTemplate,
		targetURL,
		payload.TestID,
		payload.TestScenario,
		payload.ExpectedResult,
	)
	return strings.TrimSpace(script)
}
