package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReviewMetrics counts replenishment evaluation outcomes.
type ReviewMetrics struct {
	outcomes *prometheus.CounterVec
	articles prometheus.Gauge
}

func NewReviewMetrics(reg prometheus.Registerer) *ReviewMetrics {
	if reg == nil {
		return &ReviewMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replenishment_review_outcomes_total",
		Help: "Replenishment evaluations grouped by action and reason.",
	}, []string{"action", "reason"})
	articles := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "replenishment_review_last_pass_articles",
		Help: "Articles evaluated during the most recent review pass.",
	})
	reg.MustRegister(outcomes, articles)
	return &ReviewMetrics{outcomes: outcomes, articles: articles}
}

// ObserveOutcome increments the outcome counter.
func (r *ReviewMetrics) ObserveOutcome(action, reason string) {
	if r == nil || r.outcomes == nil {
		return
	}
	r.outcomes.WithLabelValues(normalizeLabel(action), normalizeLabel(reason)).Inc()
}

// SetPassSize records how many articles the last pass visited.
func (r *ReviewMetrics) SetPassSize(n int) {
	if r == nil || r.articles == nil {
		return
	}
	r.articles.Set(float64(n))
}
