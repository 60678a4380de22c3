// Package telemetry emits service metrics to AWS CloudWatch.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"fishwatch/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics publishes request and assessment metrics.
//
// Metrics emitted:
//   - APILatency, APIRequestCount: Dims {Method, Endpoint, Status}
//   - AssessmentCount: Dims {Verdict, Ocean}
//   - OracleLatency, OracleFailure: no dims
//
// Publishing failures are logged and otherwise ignored.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchMetrics creates a publisher for namespace. An empty namespace
// falls back to types.MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordRequest emits latency and count for one HTTP request.
// The HTTP middleware has no context to hand over, so the put runs on a
// short background context.
func (m *CloudWatchMetrics) RecordRequest(method, endpoint, status string, d time.Duration) {
	dims := []cwtypes.Dimension{
		dimension(types.DimMethod, method),
		dimension(types.DimEndpoint, endpoint),
		dimension(types.DimStatus, status),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m.put(ctx, "request",
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(d.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		},
	)
}

// RecordAssessment counts one completed assessment.
func (m *CloudWatchMetrics) RecordAssessment(ctx context.Context, verdict types.VerdictLabel, ocean string) {
	m.put(ctx, "assessment", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricAssessmentCount),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dimension(types.DimVerdict, string(verdict)),
			dimension(types.DimOcean, ocean),
		},
	})
}

// RecordOracleLatency records the wall time of one oracle call in milliseconds.
func (m *CloudWatchMetrics) RecordOracleLatency(ctx context.Context, d time.Duration) {
	m.put(ctx, "oracle latency", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricOracleLatency),
		Value:      aws.Float64(float64(d.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
	})
}

// RecordOracleFailure counts one failed or malformed oracle call.
func (m *CloudWatchMetrics) RecordOracleFailure(ctx context.Context) {
	m.put(ctx, "oracle failure", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricOracleFailure),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
	})
}

func (m *CloudWatchMetrics) put(ctx context.Context, kind string, data ...cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to record "+kind+" metric",
			"error", err.Error(),
			"namespace", m.namespace,
		)
	}
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}
