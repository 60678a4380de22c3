package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricAPILatency      = "APILatency"
	MetricAPIRequestCount = "APIRequestCount"
	MetricAssessmentCount = "AssessmentCount"
	MetricOracleLatency   = "OracleLatency"
	MetricOracleFailure   = "OracleFailure"

	// Dimension Keys
	DimEndpoint = "Endpoint"
	DimMethod   = "Method"
	DimStatus   = "Status"
	DimVerdict  = "Verdict"
	DimOcean    = "Ocean"

	// Metric Namespace
	MetricNamespace = "FishWatch"
)
