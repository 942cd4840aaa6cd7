package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

// Metric constructors fall back to a no-op meter before Init, so the
// admission counters work in tests without an export pipeline.

func TestNewCounter(t *testing.T) {
	globalTelemetry = nil
	ctx := context.Background()

	admissions, err := NewCounter(MetricOpts{
		Name:        "checkin_admissions_total",
		Description: "Check-in attempts by outcome",
		Unit:        "{attempt}",
	})
	require.NoError(t, err)
	require.NotNil(t, admissions)

	admissions.Inc(ctx, OutcomeAttr("admitted"), EventCodeAttr("4821"))
	admissions.Inc(ctx, OutcomeAttr("duplicate"))
	admissions.Add(ctx, 3, OutcomeAttr("invalid_code"))
}

func TestNewHistogram(t *testing.T) {
	globalTelemetry = nil
	ctx := context.Background()

	latency, err := NewHistogram(MetricOpts{
		Name:        "checkin_admission_duration",
		Description: "Check-in processing duration",
		Unit:        "s",
	})
	require.NoError(t, err)
	require.NotNil(t, latency)

	latency.Record(ctx, 0.042, OutcomeAttr("admitted"))
	latency.Record(ctx, 0.003, OutcomeAttr("outside_window"))
}

func TestNewHistogramWithBuckets(t *testing.T) {
	globalTelemetry = nil
	ctx := context.Background()

	latency, err := NewHistogramWithBuckets(MetricOpts{
		Name:        "checkin_admission_duration",
		Description: "Check-in processing duration",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1})
	require.NoError(t, err)
	require.NotNil(t, latency)

	latency.Record(ctx, 0.031, OutcomeAttr("admitted"), UserIDAttr("user-1"))
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		name      string
		attr      attribute.KeyValue
		wantKey   string
		wantValue string
	}{
		{"event id", EventIDAttr("evt-1"), AttrEventID, "evt-1"},
		{"event code", EventCodeAttr("4821"), AttrEventCode, "4821"},
		{"user id", UserIDAttr("user-1"), AttrUserID, "user-1"},
		{"outcome", OutcomeAttr("admitted"), AttrOutcome, "admitted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKey, string(tt.attr.Key))
			assert.Equal(t, tt.wantValue, tt.attr.Value.AsString())
		})
	}
}

func TestMetricConstants(t *testing.T) {
	assert.Equal(t, "event.id", AttrEventID)
	assert.Equal(t, "event.code", AttrEventCode)
	assert.Equal(t, "user.id", AttrUserID)
	assert.Equal(t, "checkin.outcome", AttrOutcome)
}
