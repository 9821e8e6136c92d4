package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the adoption tracker's Prometheus collectors. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Adoption writes by species and outcome ("created", "busy", "extended", "deleted")
	AdoptionOps *prometheus.CounterVec

	// Notification attempts by channel, policy and result ("sent", "failed")
	Notifications *prometheus.CounterVec

	// Sweep runs and their per-record actions
	SweepRuns     *prometheus.CounterVec
	SweepActions  *prometheus.CounterVec
	SweepDuration *prometheus.HistogramVec

	// Currently connected staff feed clients
	FeedClients prometheus.Gauge
}

// New registers all collectors with reg. Pass prometheus.NewRegistry() in
// tests so registrations don't collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AdoptionOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adoptrack_adoption_operations_total",
			Help: "Adoption lifecycle writes by species and outcome",
		}, []string{"species", "outcome"}),

		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adoptrack_notifications_total",
			Help: "Notification attempts by channel, policy and result",
		}, []string{"channel", "policy", "result"}),

		SweepRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adoptrack_sweep_runs_total",
			Help: "Completed daily sweeps by name and species",
		}, []string{"sweep", "species"}),

		SweepActions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adoptrack_sweep_actions_total",
			Help: "Per-adoption sweep actions (reminder, alert, congratulation, error)",
		}, []string{"sweep", "action"}),

		SweepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "adoptrack_sweep_duration_seconds",
			Help:    "Duration of a full sweep across all shelters",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"sweep"}),

		FeedClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "adoptrack_feed_clients",
			Help: "Staff feed websocket connections",
		}),
	}
}

func (m *Metrics) IncAdoptionOp(species, outcome string) {
	if m != nil {
		m.AdoptionOps.WithLabelValues(species, outcome).Inc()
	}
}

func (m *Metrics) IncNotification(channel, policy, result string) {
	if m != nil {
		m.Notifications.WithLabelValues(channel, policy, result).Inc()
	}
}

func (m *Metrics) IncSweepRun(sweep, species string) {
	if m != nil {
		m.SweepRuns.WithLabelValues(sweep, species).Inc()
	}
}

func (m *Metrics) IncSweepAction(sweep, action string) {
	if m != nil {
		m.SweepActions.WithLabelValues(sweep, action).Inc()
	}
}

func (m *Metrics) ObserveSweep(sweep string, d time.Duration) {
	if m != nil {
		m.SweepDuration.WithLabelValues(sweep).Observe(d.Seconds())
	}
}

func (m *Metrics) FeedConnected() {
	if m != nil {
		m.FeedClients.Inc()
	}
}

func (m *Metrics) FeedDisconnected() {
	if m != nil {
		m.FeedClients.Dec()
	}
}
