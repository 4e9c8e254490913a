// Package metrics writes decode cycle measurements to InfluxDB.
package metrics

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/influxdata/influxdb-client-go/api/write"
)

// NewWriteAPI returns a write API for the given InfluxDB host. With an
// empty host a no-op implementation is returned, so callers never need to
// branch on whether metrics are configured.
func NewWriteAPI(host, organization, bucket string) api.WriteAPI {
	if host == "" {
		return &NopWriteAPI{}
	}
	return influxdb2.NewClient(host, "").WriteAPI(organization, bucket)
}

// DecodePoint builds the measurement written after one decode cycle.
func DecodePoint(source string, samples, bytes, errors int, took time.Duration) *write.Point {
	return influxdb2.NewPoint("decode",
		map[string]string{"source": source},
		map[string]interface{}{
			"samples":     samples,
			"bytes":       bytes,
			"errors":      errors,
			"duration_ms": float64(took.Microseconds()) / 1000.0,
		},
		time.Now())
}

// NopWriteAPI discards all writes. It stands in when no InfluxDB host is
// configured.
type NopWriteAPI struct{}

// WriteRecord discards a line protocol record.
func (n *NopWriteAPI) WriteRecord(line string) {}

// WritePoint discards a point.
func (n *NopWriteAPI) WritePoint(point *write.Point) {}

// Flush does nothing.
func (n *NopWriteAPI) Flush() {}

// Close does nothing.
func (n *NopWriteAPI) Close() {}

// Errors returns no channel; the no-op writer never fails.
func (n *NopWriteAPI) Errors() <-chan error { return nil }
