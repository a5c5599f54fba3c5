package services

import (
	"reflect"
	"testing"
	"time"

	"qa-agent-backend/models"
)

func TestBuildTestCasePayload(t *testing.T) {
	payload := BuildTestCasePayload("discount code", 1, "faq.md")

	if payload.TestID != "TC-001" {
		t.Errorf("expected TC-001, got %s", payload.TestID)
	}
	if payload.Feature != "discount code" {
		t.Errorf("expected feature to echo the query, got %q", payload.Feature)
	}
	if payload.TestScenario != "Validate: discount code" {
		t.Errorf("unexpected scenario %q", payload.TestScenario)
	}
	if payload.ExpectedResult == "" {
		t.Error("expected a fixed expected_result")
	}
	if !reflect.DeepEqual(payload.GroundedIn, []string{"faq.md"}) {
		t.Errorf("expected grounding [faq.md], got %v", payload.GroundedIn)
	}
}

func TestBuildTestCasePayloadRankPadding(t *testing.T) {
	if got := BuildTestCasePayload("q", 10, "s").TestID; got != "TC-010" {
		t.Errorf("expected TC-010, got %s", got)
	}
	if got := BuildTestCasePayload("q", 123, "s").TestID; got != "TC-123" {
		t.Errorf("expected TC-123, got %s", got)
	}
}

func TestBuildTestCasePayloadUnknownSource(t *testing.T) {
	payload := BuildTestCasePayload("checkout", 2, "")
	if !reflect.DeepEqual(payload.GroundedIn, []string{"unknown"}) {
		t.Errorf("expected unknown sentinel, got %v", payload.GroundedIn)
	}
}

func TestMintRecordsFreshIDsPerCall(t *testing.T) {
	matches := []models.RetrievalMatch{
		{Source: "checkout.md"},
		{Source: "cart.md"},
		{Source: "faq.md"},
	}
	now := time.Now().UTC()

	first := mintRecords("checkout flow", matches, now)
	second := mintRecords("checkout flow", matches, now)

	seen := make(map[string]bool)
	for _, r := range first {
		if seen[r.ID] {
			t.Fatalf("duplicate id %s within one call", r.ID)
		}
		seen[r.ID] = true
	}
	for _, r := range second {
		if seen[r.ID] {
			t.Fatalf("id %s reused across calls", r.ID)
		}
		seen[r.ID] = true
	}

	// Identical inputs still produce identical payloads; only the ids
	// differ between the two calls.
	for i := range first {
		if !reflect.DeepEqual(first[i].Payload, second[i].Payload) {
			t.Fatalf("payload %d differs between calls", i)
		}
	}
}

func TestMintRecordsPreservesRankOrder(t *testing.T) {
	matches := []models.RetrievalMatch{
		{Source: "a.md"}, {Source: "b.md"}, {Source: "c.md"},
	}
	records := mintRecords("login", matches, time.Now().UTC())

	for i, r := range records {
		if r.Seq != i+1 {
			t.Errorf("record %d: expected seq %d, got %d", i, i+1, r.Seq)
		}
		want := BuildTestCasePayload("login", i+1, matches[i].Source)
		if !reflect.DeepEqual(r.Payload, want) {
			t.Errorf("record %d payload out of rank order", i)
		}
	}
}

func TestBuildTestCasePayloadReproducible(t *testing.T) {
	first := BuildTestCasePayload("apply coupon", 3, "checkout.html")
	second := BuildTestCasePayload("apply coupon", 3, "checkout.html")
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs produced different payloads")
	}
}
