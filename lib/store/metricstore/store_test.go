package metricstore

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/ValentinKolb/kvkit/lib/store/cstore"
	storetesting "github.com/ValentinKolb/kvkit/lib/store/testing"
	"github.com/VictoriaMetrics/metrics"
)

func TestMetricStoreConformance(t *testing.T) {
	storetesting.RunStoreTests(t, "MetricStore", func() store.Store[string, string] {
		return New[string, string](cstore.NewStore[string, string](nil), "conformance", metrics.NewSet())
	})
}

func TestCounters(t *testing.T) {
	set := metrics.NewSet()
	s := New[string, string](cstore.NewStore[string, string](nil), "users", set)
	ctx := context.Background()

	_ = s.Set(ctx, "a", "1")
	_ = s.Set(ctx, "a", "2", store.IfNotExist())
	_, _ = s.Get(ctx, "a")
	_, _ = s.Get(ctx, "missing")
	_, _, _ = s.BatchGet(ctx, []string{"a", "missing", "missing2"})

	counter := func(name string) uint64 {
		return set.GetOrCreateCounter(name).Get()
	}

	if got := counter(`kvkit_store_ops_total{store="users",op="set"}`); got != 2 {
		t.Errorf("Expected 2 set calls, got %d", got)
	}
	if got := counter(`kvkit_store_errors_total{store="users",op="set"}`); got != 1 {
		t.Errorf("Expected 1 set error, got %d", got)
	}
	if got := counter(`kvkit_store_ops_total{store="users",op="get"}`); got != 2 {
		t.Errorf("Expected 2 get calls, got %d", got)
	}
	if got := counter(`kvkit_store_misses_total{store="users"}`); got != 3 {
		t.Errorf("Expected 3 misses, got %d", got)
	}
	if got := counter(`kvkit_store_errors_total{store="users",op="get"}`); got != 0 {
		t.Errorf("Expected misses not to count as errors, got %d", got)
	}

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	if !strings.Contains(buf.String(), `kvkit_store_op_duration_seconds_bucket{store="users",op="get"`) {
		t.Errorf("Expected latency histogram in exposition, got:\n%s", buf.String())
	}
}

func TestUnwrap(t *testing.T) {
	inner := cstore.NewStore[string, string](nil)
	s := New[string, string](inner, "unwrap", metrics.NewSet())
	if s.Unwrap() != store.Store[string, string](inner) {
		t.Errorf("Expected Unwrap to return the inner store")
	}
}
