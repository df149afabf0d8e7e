package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporterSnapshotIsolated(t *testing.T) {
	r := NewReporter()
	r.Update("indexing", 5, 10)
	snap := r.Snapshot()
	require.Equal(t, Value{Current: 5, Max: 10}, snap["indexing"])

	snap["indexing"] = Value{Current: 999, Max: 999}
	again := r.Snapshot()
	assert.Equal(t, Value{Current: 5, Max: 10}, again["indexing"])
}

func TestThroughputCounterTrimsOldSamples(t *testing.T) {
	base := time.Unix(0, 0)
	clock := base
	tc := NewThroughputCounter()
	tc.now = func() time.Time { return clock }

	tc.Add(100)
	clock = clock.Add(6 * time.Second)
	tc.Add(0)

	assert.InDelta(t, 0.0, tc.Rate(), 1e-9)
}

func TestThroughputCounterRateWithinWindow(t *testing.T) {
	base := time.Unix(0, 0)
	clock := base
	tc := NewThroughputCounter()
	tc.now = func() time.Time { return clock }

	tc.Add(10)
	clock = clock.Add(1 * time.Second)
	tc.Add(10)

	assert.InDelta(t, 20.0/5.0, tc.Rate(), 1e-9)
}

func TestTotalsSummaryPercentage(t *testing.T) {
	tot := NewTotals()
	tot.AddProcessed(300)
	tot.AddAccepted(100)
	assert.Equal(t, "processed=300 accepted=100 (33.33%)", tot.Summary())
}

func TestTotalsSummaryZeroProcessed(t *testing.T) {
	tot := NewTotals()
	assert.Equal(t, "processed=0 accepted=0 (0%)", tot.Summary())
}
