// Package observability publishes operational metrics and traces for the
// stream processors and the API.
package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metric names emitted by the stream consumers.
const (
	MetricRecordsProcessed         = "StreamRecordsProcessed"
	MetricRecordsSkipped           = "StreamRecordsSkipped"
	MetricRecordsFailed            = "StreamRecordsFailed"
	MetricNotificationsSent        = "NotificationsSent"
	MetricNotificationsSuppressed  = "NotificationsSuppressed"
	MetricNotificationSendFailures = "NotificationSendFailures"
)

// Metrics publishes counters to CloudWatch. Publishing is best effort: a
// metrics failure is logged and never fails the operation being measured.
type Metrics struct {
	client    *cloudwatch.Client
	namespace string
	logger    *zap.Logger
}

// NewMetrics creates a metrics publisher under the given namespace.
func NewMetrics(client *cloudwatch.Client, namespace string, logger *zap.Logger) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// Count publishes a counter increment with an optional dimension.
func (m *Metrics) Count(ctx context.Context, name string, value float64, dimensions map[string]string) {
	if m == nil || m.client == nil {
		return
	}

	datum := cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  aws.Time(time.Now()),
	}
	for k, v := range dimensions {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		m.logger.Warn("Failed to publish metric",
			zap.String("metric", name),
			zap.Error(err),
		)
	}
}
