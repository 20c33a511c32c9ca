// Package reporter records timing measurements of lifecycle work.
package reporter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Measure is the report name used for contribution phase timings.
const Measure = "measure"

// Service starts named timers.
type Service interface {
	Time(name string) Timer
}

// Timer is stopped with the key the measurement is recorded under.
type Timer interface {
	TimeEnd(key string) time.Duration
}

// Prometheus records timings into a histogram labelled by report name and key.
type Prometheus struct {
	durations *prometheus.HistogramVec
	now       func() time.Time
}

// NewPrometheus registers the duration histogram on reg.
// An already registered identical collector is reused.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "workbench",
		Name:      "measure_duration_seconds",
		Help:      "Duration of measured lifecycle work, by report name and key.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"name", "key"})

	if err := reg.Register(hist); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		hist = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	return &Prometheus{durations: hist, now: time.Now}, nil
}

// Collector exposes the histogram, mostly for tests.
func (p *Prometheus) Collector() *prometheus.HistogramVec { return p.durations }

func (p *Prometheus) Time(name string) Timer {
	return &promTimer{p: p, name: name, start: p.now()}
}

type promTimer struct {
	p     *Prometheus
	name  string
	start time.Time
}

func (t *promTimer) TimeEnd(key string) time.Duration {
	d := t.p.now().Sub(t.start)
	t.p.durations.WithLabelValues(t.name, key).Observe(d.Seconds())
	return d
}

// Nop measures but records nothing.
type Nop struct{}

func (Nop) Time(string) Timer { return nopTimer{start: time.Now()} }

type nopTimer struct{ start time.Time }

func (t nopTimer) TimeEnd(string) time.Duration { return time.Since(t.start) }
