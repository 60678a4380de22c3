package types

// Request bounds shared by the API handlers. Observation ranges are enforced
// through the validate tags on Observation.
const (
	// DefaultHistoryLimit and MaxHistoryLimit bound GET /v1/assessments.
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200

	// DefaultMaxBatchSize applies when no batch limit is configured.
	DefaultMaxBatchSize = 100
)
