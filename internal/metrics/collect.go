package metrics

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// NewManualProvider returns an in-process meter provider whose data can be
// pulled on demand through the returned reader.
func NewManualProvider() (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), reader
}

// Point is one collected series: counter sums, or histogram counts and sums.
type Point struct {
	Name       string  `json:"name"`
	Attributes string  `json:"attributes,omitempty"`
	Count      int64   `json:"count"`
	Sum        float64 `json:"sum"`
}

// Collect pulls every series from reader, sorted by name then attributes.
func Collect(ctx context.Context, reader sdkmetric.Reader) ([]Point, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collecting metrics: %w", err)
	}

	var points []Point
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					points = append(points, Point{
						Name:       m.Name,
						Attributes: encode(dp.Attributes),
						Count:      dp.Value,
						Sum:        float64(dp.Value),
					})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					points = append(points, Point{
						Name:       m.Name,
						Attributes: encode(dp.Attributes),
						Count:      int64(dp.Count),
						Sum:        dp.Sum,
					})
				}
			}
		}
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].Name != points[j].Name {
			return points[i].Name < points[j].Name
		}
		return points[i].Attributes < points[j].Attributes
	})
	return points, nil
}

func encode(set attribute.Set) string {
	return set.Encoded(attribute.DefaultEncoder())
}
