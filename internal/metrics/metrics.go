package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"IntelBrief/internal/domain"
)

const namespace = "intelbrief"

// Recorder owns the pipeline's Prometheus collectors. A nil *Recorder is valid
// and records nothing, so components can be built without metrics in tests.
type Recorder struct {
	stageDuration  *prometheus.HistogramVec
	runsTotal      *prometheus.CounterVec
	modelCalls     *prometheus.CounterVec
	itemsCollected *prometheus.CounterVec
	duplicates     prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Finished pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		modelCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_calls_total",
				Help:      "Generative model calls by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		itemsCollected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_collected_total",
				Help:      "Items accepted by the collector by source kind",
			},
			[]string{"kind"},
		),
		duplicates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicates_total",
				Help:      "Items skipped because their fingerprint was already known",
			},
		),
	}

	for _, c := range []prometheus.Collector{r.stageDuration, r.runsTotal, r.modelCalls, r.itemsCollected, r.duplicates} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveStage records how long a stage ran.
func (r *Recorder) ObserveStage(stage domain.Stage, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

// RunFinished counts a run by its final stage.
func (r *Recorder) RunFinished(stage domain.Stage) {
	if r == nil {
		return
	}
	r.runsTotal.WithLabelValues(string(stage)).Inc()
}

// ModelCall counts a single model attempt; outcome is "ok" or "error".
func (r *Recorder) ModelCall(model, outcome string) {
	if r == nil {
		return
	}
	r.modelCalls.WithLabelValues(model, outcome).Inc()
}

// AddCollected counts accepted items.
func (r *Recorder) AddCollected(kind domain.SourceKind, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.itemsCollected.WithLabelValues(string(kind)).Add(float64(n))
}

// AddDuplicates counts deduplicated items.
func (r *Recorder) AddDuplicates(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.duplicates.Add(float64(n))
}
