package core

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"dailypost/internal/types"
)

// cloudWatchTimeout bounds one PutMetricData call. Request metrics are
// recorded after the response is written, so they do not use the request
// context.
const cloudWatchTimeout = 2 * time.Second

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics implements MetricsCollector on CloudWatch.
//
// Metrics emitted:
//   - APIRequest, APILatency: Dims {Endpoint, Method, Status}
//   - SegmentItems: Dims {Provider}
//   - PostScheduled: no dims
//   - DispatchFailed: Dims {Status}
//
// Publishing failures are logged and otherwise ignored.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

var _ MetricsCollector = (*CloudWatchMetrics)(nil)

// NewCloudWatchMetrics creates a collector publishing to namespace (or
// types.MetricNamespace when empty).
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

// RecordRequest implements MetricsCollector.
func (m *CloudWatchMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		dimension(types.DimEndpoint, endpoint),
		dimension(types.DimMethod, method),
		dimension(types.DimStatus, status),
	}

	ctx, cancel := context.WithTimeout(context.Background(), cloudWatchTimeout)
	defer cancel()

	m.put(ctx, "request",
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPIRequest),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
		},
	)
}

// RecordSegment implements MetricsCollector.
func (m *CloudWatchMetrics) RecordSegment(ctx context.Context, provider string, items int) {
	m.put(ctx, "segment", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricSegmentItems),
		Value:      aws.Float64(float64(items)),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{dimension(types.DimProvider, provider)},
	})
}

// RecordScheduled implements MetricsCollector.
func (m *CloudWatchMetrics) RecordScheduled(ctx context.Context, count int) {
	m.put(ctx, "scheduled", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricPostScheduled),
		Value:      aws.Float64(float64(count)),
		Unit:       cwtypes.StandardUnitCount,
	})
}

// RecordDispatchFailure implements MetricsCollector.
func (m *CloudWatchMetrics) RecordDispatchFailure(ctx context.Context, status int) {
	m.put(ctx, "dispatch failure", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDispatchFailed),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{dimension(types.DimStatus, strconv.Itoa(status))},
	})
}

func (m *CloudWatchMetrics) put(ctx context.Context, what string, data ...cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record "+what+" metric",
			"error", err.Error(),
			"namespace", m.namespace,
		)
	}
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}
