package proc

import (
	"context"

	"github.com/leeineian/confessor/confess"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts submission outcomes and exposes store and cooldown sizes.
type Metrics struct {
	Submissions     *prometheus.CounterVec
	StoredTotal     prometheus.GaugeFunc
	ActiveCooldowns prometheus.GaugeFunc
}

// NewMetrics registers every confession metric on reg.
func NewMetrics(reg prometheus.Registerer, store *confess.Store, tracker *confess.CooldownTracker) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "confessor_submissions_total",
			Help: "Confession submission attempts by final state",
		}, []string{"state"}),
		StoredTotal: f.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "confessor_confessions_stored",
			Help: "Confessions currently held in storage",
		}, func() float64 { return float64(store.Count()) }),
		ActiveCooldowns: f.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "confessor_cooldown_entries",
			Help: "Submitters currently tracked by the cooldown window",
		}, func() float64 { return float64(tracker.Len()) }),
	}
}

// Observe records one finished submission.
func (m *Metrics) Observe(_ context.Context, res confess.Result) {
	m.Submissions.WithLabelValues(string(res.State)).Inc()
}
