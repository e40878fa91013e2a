package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"promptrun/internal/core"
)

func TestObserveDispatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveDispatch(core.ProviderOpenAI, "success", 120*time.Millisecond)
	m.ObserveDispatch(core.ProviderOpenAI, "success", 80*time.Millisecond)
	m.ObserveDispatch(core.ProviderAnthropic, "provider_status_error", 50*time.Millisecond)

	got := testutil.ToFloat64(m.dispatches.WithLabelValues("openai", "success"))
	if got != 2 {
		t.Errorf("openai success count = %v, want 2", got)
	}
	got = testutil.ToFloat64(m.dispatches.WithLabelValues("anthropic", "provider_status_error"))
	if got != 1 {
		t.Errorf("anthropic error count = %v, want 1", got)
	}
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// Two instances on distinct registries must not collide.
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.ObserveDispatch(core.ProviderGoogle, "success", time.Millisecond)
	if got := testutil.ToFloat64(b.dispatches.WithLabelValues("google", "success")); got != 0 {
		t.Errorf("second registry count = %v, want 0", got)
	}
}
