package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric is a single CloudWatch datum.
type Metric struct {
	Name       string
	Value      float64
	Unit       cwtypes.StandardUnit
	Dimensions map[string]string
}

// Metrics records storefront counters in a CloudWatch namespace.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewMetrics returns a recorder bound to namespace.
func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// CountMetric is a single occurrence of name.
func CountMetric(name string, dims map[string]string) Metric {
	return Metric{Name: name, Value: 1, Unit: cwtypes.StandardUnitCount, Dimensions: dims}
}

// Count records a single occurrence of name.
func (m *Metrics) Count(ctx context.Context, name string, dims map[string]string) error {
	return m.Put(ctx, CountMetric(name, dims))
}

// Put sends the given metrics in one PutMetricData call.
func (m *Metrics) Put(ctx context.Context, metrics ...Metric) error {
	if len(metrics) == 0 {
		return nil
	}
	now := m.nowFunc()
	data := make([]cwtypes.MetricDatum, 0, len(metrics))
	for _, mt := range metrics {
		mt := mt // Value is referenced by address below
		unit := mt.Unit
		if unit == "" {
			unit = cwtypes.StandardUnitNone
		}
		data = append(data, cwtypes.MetricDatum{
			MetricName: awsString(mt.Name),
			Value:      &mt.Value,
			Unit:       unit,
			Timestamp:  &now,
			Dimensions: dimensions(mt.Dimensions),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &m.namespace,
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}

// dimensions are sorted by name so identical maps produce identical series.
func dimensions(in map[string]string) []cwtypes.Dimension {
	if len(in) == 0 {
		return nil
	}
	names := make([]string, 0, len(in))
	for k := range in {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]cwtypes.Dimension, 0, len(names))
	for _, n := range names {
		out = append(out, cwtypes.Dimension{Name: awsString(n), Value: awsString(in[n])})
	}
	return out
}
