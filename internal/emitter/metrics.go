package emitter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcomes, one per gate plus handler failure.
const (
	outcomeDisabled         = "disabled"
	outcomeWrongChannelType = "wrong_channel_type"
	outcomeLockedChannel    = "locked_channel"
	outcomeLockedUser       = "locked_user"
	outcomeBusy             = "busy"
	outcomeRun              = "run"
	outcomeError            = "error"
)

// Metrics exports dispatch counters and handler latency.
type Metrics struct {
	dispatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	cronRuns   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bot",
			Subsystem: "emitter",
			Name:      "dispatches_total",
			Help:      "Listener resolutions by key and gate outcome.",
		}, []string{"key", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bot",
			Subsystem: "emitter",
			Name:      "handler_duration_seconds",
			Help:      "Time spent in listener functions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"key"}),
		cronRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bot",
			Subsystem: "emitter",
			Name:      "cron_runs_total",
			Help:      "Recurring task executions by job name and result.",
		}, []string{"job", "result"}),
	}

	for _, c := range []prometheus.Collector{m.dispatches, m.duration, m.cronRuns} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeOutcome(key, outcome string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(key, outcome).Inc()
}

func (m *Metrics) observeDuration(key string, started time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(key).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeCron(job string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cronRuns.WithLabelValues(job, result).Inc()
}
