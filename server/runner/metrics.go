package runner

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/goharness/metrics"
)

const (
	metricRunsTotal       = "runs_total"
	metricRunDuration     = "run_duration_seconds"
	metricStepsTotal      = "steps_total"
	metricPanicsRecovered = "panics_recovered_total"
)

// RunMetrics records run outcomes against a metrics registry.
type RunMetrics struct {
	runsTotal       metrics.CounterVec
	runDuration     metrics.GaugeVec
	stepsTotal      metrics.CounterVec
	panicsRecovered metrics.CounterVec
}

// NewRunMetrics creates and registers the run metrics.
func NewRunMetrics(registry metrics.Registry) (*RunMetrics, error) {
	m := &RunMetrics{}
	var err error

	m.runsTotal, err = registry.NewCounterVec(prometheus.CounterOpts{
		Name: metricRunsTotal,
		Help: "Count of runs by result",
	}, []string{"result"})
	if err != nil {
		return nil, fmt.Errorf("creating %s metric: %w", metricRunsTotal, err)
	}

	m.runDuration, err = registry.NewGaugeVec(prometheus.GaugeOpts{
		Name: metricRunDuration,
		Help: "Duration of the most recent run of each suite in seconds",
	}, []string{"suite"})
	if err != nil {
		return nil, fmt.Errorf("creating %s metric: %w", metricRunDuration, err)
	}

	m.stepsTotal, err = registry.NewCounterVec(prometheus.CounterOpts{
		Name: metricStepsTotal,
		Help: "Count of executed steps by suite, step and final state",
	}, []string{"suite", "step", "state"})
	if err != nil {
		return nil, fmt.Errorf("creating %s metric: %w", metricStepsTotal, err)
	}

	m.panicsRecovered, err = registry.NewCounterVec(prometheus.CounterOpts{
		Name: metricPanicsRecovered,
		Help: "Count of panics intercepted during step execution",
	}, []string{"suite", "step"})
	if err != nil {
		return nil, fmt.Errorf("creating %s metric: %w", metricPanicsRecovered, err)
	}

	return m, nil
}

// Record updates the metrics from a completed run. Safe to call on a nil
// receiver.
func (m *RunMetrics) Record(summary RunSummary, steps []StepExecution) {
	if m == nil {
		return
	}

	result := "success"
	if summary.Error != "" {
		result = "failure"
	}
	m.runsTotal.With(prometheus.Labels{"result": result}).Inc()

	for suite, duration := range suiteDurations(steps) {
		m.runDuration.With(prometheus.Labels{"suite": suite}).Set(duration)
	}

	for _, step := range steps {
		m.stepsTotal.With(prometheus.Labels{
			"suite": step.Suite,
			"step":  step.Type,
			"state": step.State,
		}).Inc()

		if step.Panic != "" {
			m.panicsRecovered.With(prometheus.Labels{
				"suite": step.Suite,
				"step":  step.Type,
			}).Inc()
		}
	}
}

// suiteDurations derives per-suite wall time from the step records, from the
// earliest step start to the latest step end.
func suiteDurations(steps []StepExecution) map[string]float64 {
	type window struct {
		start, end *StepExecution
	}
	windows := make(map[string]*window)

	for i := range steps {
		step := &steps[i]
		if step.StartTime == nil || step.EndTime == nil {
			continue
		}

		w, ok := windows[step.Suite]
		if !ok {
			windows[step.Suite] = &window{start: step, end: step}
			continue
		}
		if step.StartTime.Before(*w.start.StartTime) {
			w.start = step
		}
		if step.EndTime.After(*w.end.EndTime) {
			w.end = step
		}
	}

	durations := make(map[string]float64, len(windows))
	for suite, w := range windows {
		durations[suite] = w.end.EndTime.Sub(*w.start.StartTime).Seconds()
	}
	return durations
}
