package tracking

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors of the tracker. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	FramesSent       *prometheus.CounterVec
	FramesReceived   *prometheus.CounterVec
	ExchangeFailures *prometheus.CounterVec
	ExchangeDuration prometheus.Histogram
	Jobs             *prometheus.CounterVec
	JobActive        prometheus.Gauge
}

// NewMetrics registers the tracker metrics against reg, defaulting to the
// global registry when nil. Registering twice returns the existing
// collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	sent, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skytrack_frames_sent_total",
		Help: "Frames written to the mount controller, labeled by command.",
	}, []string{"command"}), "skytrack_frames_sent_total")
	if err != nil {
		return nil, err
	}

	received, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skytrack_frames_received_total",
		Help: "Frames read from the mount controller, labeled by command.",
	}, []string{"command"}), "skytrack_frames_received_total")
	if err != nil {
		return nil, err
	}

	failures, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skytrack_exchange_failures_total",
		Help: "Failed frame exchanges, labeled by reason.",
	}, []string{"reason"}), "skytrack_exchange_failures_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skytrack_exchange_duration_seconds",
		Help:    "Time from writing a frame to reading its reply.",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 0.75, 1, 2.5},
	}), "skytrack_exchange_duration_seconds")
	if err != nil {
		return nil, err
	}

	jobs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skytrack_jobs_total",
		Help: "Finished tracker jobs, labeled by kind and final status.",
	}, []string{"kind", "status"}), "skytrack_jobs_total")
	if err != nil {
		return nil, err
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skytrack_job_active",
		Help: "1 while a tracker job is running.",
	}), "skytrack_job_active")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		FramesSent:       sent,
		FramesReceived:   received,
		ExchangeFailures: failures,
		ExchangeDuration: duration,
		Jobs:             jobs,
		JobActive:        active,
	}, nil
}

func (m *Metrics) frameSent(command string) {
	if m != nil {
		m.FramesSent.WithLabelValues(command).Inc()
	}
}

func (m *Metrics) frameReceived(command string, seconds float64) {
	if m != nil {
		m.FramesReceived.WithLabelValues(command).Inc()
		m.ExchangeDuration.Observe(seconds)
	}
}

func (m *Metrics) exchangeFailed(reason string) {
	if m != nil {
		m.ExchangeFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) setActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.JobActive.Set(1)
	} else {
		m.JobActive.Set(0)
	}
}

func (m *Metrics) jobFinished(kind JobKind, status Status) {
	if m != nil {
		m.Jobs.WithLabelValues(string(kind), status.String()).Inc()
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
