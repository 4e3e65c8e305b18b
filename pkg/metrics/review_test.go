package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestReviewMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	review := NewReviewMetrics(reg)

	review.ObserveOutcome("create_order", "below_reorder_point")
	review.ObserveOutcome("create_order", "below_reorder_point")
	review.ObserveOutcome("skip", "open_order_exists")
	review.SetPassSize(12)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	mf := findMetricFamily(mfs, "replenishment_review_outcomes_total")
	if mf == nil {
		t.Fatal("outcome counter not exported")
	}
	var created float64
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), "action", "create_order") && matchesLabel(metric.GetLabel(), "reason", "below_reorder_point") {
			created = metric.GetCounter().GetValue()
		}
	}
	if created != 2 {
		t.Fatalf("expected 2 created outcomes, got %f", created)
	}

	gauge := findMetricFamily(mfs, "replenishment_review_last_pass_articles")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 12 {
		t.Fatalf("expected pass size gauge of 12")
	}
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHTTPMetrics(reg)
	h.Observe(http.MethodPost, "/api/v1/sales", http.StatusCreated, 20*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	got, err := fetchCounterValue(mfs, "http_requests_total", "route", "/api/v1/sales")
	if err != nil {
		t.Fatalf("fetch requests: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected one request, got %f", got)
	}
	if sum, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/api/v1/sales"); err != nil || sum <= 0 {
		t.Fatalf("expected latency histogram sample, got %f (%v)", sum, err)
	}
}
