package pipeline

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// File outcomes used as the "outcome" label.
const (
	outcomeAnalyzed = "analyzed"
	outcomeError    = "error"
	outcomeSkipped  = "unprocessed"
)

type metrics struct {
	files    *prometheus.CounterVec
	issues   *prometheus.CounterVec
	duration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vow",
				Name:      "files_total",
				Help:      "Files handled by the pipeline, by outcome",
			},
			[]string{"outcome"},
		),
		issues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vow",
				Name:      "issues_total",
				Help:      "Issues reported after suppression and filtering",
			},
			[]string{"analyzer", "severity"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "vow",
				Name:      "file_duration_seconds",
				Help:      "Time spent analyzing one file",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
	}

	var err error
	if m.files, err = register(reg, m.files); err != nil {
		return nil, err
	}
	if m.issues, err = register(reg, m.issues); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing the collector already registered under the
// same name when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
