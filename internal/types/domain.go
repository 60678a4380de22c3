package types

import "time"

// Observation is a single vessel sighting submitted for assessment.
// Speed is in knots; Proximity is the distance in nautical miles to the nearest
// protected area. Values are constructed fresh per request and never mutated.
type Observation struct {
	Latitude  float64 `json:"latitude" validate:"finite,min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"finite,min=-180,max=180"`
	Speed     float64 `json:"speed" validate:"finite,min=0"`
	Proximity float64 `json:"proximity" validate:"finite,min=0"`
}

// ObservationInput is the wire form of an Observation accepted by the JSON
// endpoints and the queue worker. Pointer fields let validation tell an absent
// field from an explicit zero.
type ObservationInput struct {
	Latitude  *float64 `json:"latitude" validate:"required,finite,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,finite,min=-180,max=180"`
	Speed     *float64 `json:"speed" validate:"required,finite,min=0"`
	Proximity *float64 `json:"proximity" validate:"required,finite,min=0"`
}

// Observation converts a validated input. Absent fields read as zero, so call
// it only after validation has passed.
func (in ObservationInput) Observation() Observation {
	var obs Observation
	if in.Latitude != nil {
		obs.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		obs.Longitude = *in.Longitude
	}
	if in.Speed != nil {
		obs.Speed = *in.Speed
	}
	if in.Proximity != nil {
		obs.Proximity = *in.Proximity
	}
	return obs
}

// VerdictLabel is the binary outcome of an assessment.
type VerdictLabel string

const (
	// VerdictPositive marks an observation as likely illegal fishing.
	VerdictPositive VerdictLabel = "Yes"
	// VerdictNegative marks an observation as likely legal.
	VerdictNegative VerdictLabel = "No"
)

// IsPositive reports whether the label flags the vessel.
func (l VerdictLabel) IsPositive() bool {
	return l == VerdictPositive
}

// Verdict is the oracle outcome as consumed by the reasoning layer.
// Confidence is in (0, 1].
type Verdict struct {
	Label      VerdictLabel `json:"label"`
	Confidence float64      `json:"confidence"`
}

// Assessment is the annotated result handed back to API clients, queue
// consumers and the history store.
type Assessment struct {
	ID          string       `json:"id"`
	Verdict     VerdictLabel `json:"verdict"`
	Confidence  string       `json:"confidence"` // e.g. "87%"
	Ocean       string       `json:"ocean"`
	Country     string       `json:"country"`
	Reasoning   string       `json:"reasoning"`
	Reasons     []string     `json:"reasons"`
	Observation Observation  `json:"observation"`
	AssessedAt  time.Time    `json:"assessed_at"`
}

// BatchAssessmentRequest is the body of POST /v1/assessments/batch.
type BatchAssessmentRequest struct {
	Observations []ObservationInput `json:"observations" validate:"required,min=1,dive"`
}

// ObservationList converts every validated input in submission order.
func (r BatchAssessmentRequest) ObservationList() []Observation {
	out := make([]Observation, len(r.Observations))
	for i, in := range r.Observations {
		out[i] = in.Observation()
	}
	return out
}

// BatchAssessmentResult lists assessments in the order of the submitted
// observations.
type BatchAssessmentResult struct {
	Assessments []*Assessment `json:"assessments"`
	Flagged     int           `json:"flagged"`
}
