package models

import "time"

// TestCasePayload is the structured test case synthesized from one
// retrieval match. Field values come from fixed templates over the query
// text; only GroundedIn reflects the retrieved document (its source name).
type TestCasePayload struct {
	TestID         string   `json:"Test_ID" bson:"test_id"`
	Feature        string   `json:"Feature" bson:"feature"`
	TestScenario   string   `json:"Test_Scenario" bson:"test_scenario"`
	ExpectedResult string   `json:"Expected_Result" bson:"expected_result"`
	GroundedIn     []string `json:"Grounded_In" bson:"grounded_in"`
}

// TestCaseRecord is a persisted test case. ID is minted fresh per record
// and never derived from content; records are append-only. Seq is the
// record's 1-based rank within its generation call and orders records
// that share a created_at.
type TestCaseRecord struct {
	ID        string          `json:"id" bson:"record_id"`
	Seq       int             `json:"seq" bson:"seq"`
	Payload   TestCasePayload `json:"payload" bson:"payload"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
}
