package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricAPILatency     = "APILatency"
	MetricAPIRequest     = "APIRequest"
	MetricSegmentItems   = "SegmentItems"
	MetricPostScheduled  = "PostScheduled"
	MetricDispatchFailed = "DispatchFailed"

	// Dimension Keys
	DimEndpoint = "Endpoint"
	DimMethod   = "Method"
	DimStatus   = "Status"
	DimProvider = "Provider"

	// Metric Namespace
	MetricNamespace = "DailyPost"
)
