package types

import "time"

// VesselAlertMessage is the SQS payload emitted for every positive assessment.
// Downstream enforcement tooling consumes it; JSON tags use snake_case.
type VesselAlertMessage struct {
	AlertID      string      `json:"alert_id"`
	AssessmentID string      `json:"assessment_id"`
	TraceID      string      `json:"trace_id"`
	Confidence   string      `json:"confidence"`
	Ocean        string      `json:"ocean"`
	Country      string      `json:"country"`
	Reasons      []string    `json:"reasons"`
	Observation  Observation `json:"observation"`
	AssessedAt   time.Time   `json:"assessed_at"`
}
