package collector

import (
	"context"
	"errors"
	"log/slog"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/metrics"
	"IntelBrief/internal/ports"
)

// Harvest is the outcome of one collection pass.
type Harvest struct {
	Items      []domain.CollectedItem
	Sources    int
	Duplicates int
	Failures   []error
}

// Options tunes collector behaviour.
type Options struct {
	// Dedup disables the Seen check when false. Accepted items are recorded either way.
	Dedup bool
}

// Collector normalises entries from all configured sources and filters out
// items whose fingerprint is already known.
type Collector struct {
	registry *Registry
	store    ports.FingerprintStore
	opts     Options
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// New wires the fetcher registry with a fingerprint store.
func New(registry *Registry, store ports.FingerprintStore, opts Options, rec *metrics.Recorder, logger *slog.Logger) *Collector {
	return &Collector{
		registry: registry,
		store:    store,
		opts:     opts,
		metrics:  rec,
		logger:   logger,
	}
}

// Collect fetches every source in order. A failing source is logged and
// skipped; only a missing registry or store aborts collection. Every accepted
// item is recorded immediately so a later source cannot reintroduce it.
func (c *Collector) Collect(ctx context.Context, specs []domain.SourceSpec) (Harvest, error) {
	if c.registry == nil || c.store == nil {
		return Harvest{}, errors.New("collector is not configured")
	}

	harvest := Harvest{Items: []domain.CollectedItem{}}
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return harvest, err
		}
		harvest.Sources++

		entries, err := c.fetch(ctx, spec)
		if err != nil {
			failure := &domain.SourceFetchFailure{Kind: spec.Kind, Target: spec.Target, Err: err}
			harvest.Failures = append(harvest.Failures, failure)
			c.warn("source fetch failed", "kind", spec.Kind, "source", spec.Target, "error", err)
			continue
		}

		accepted, duplicates := 0, 0
		for _, entry := range entries {
			item, ok := normalize(spec, entry)
			if !ok {
				continue
			}
			if c.opts.Dedup && c.store.Seen(item.Fingerprint) {
				duplicates++
				continue
			}
			c.store.Record(item.Fingerprint)
			harvest.Items = append(harvest.Items, item)
			accepted++
		}

		harvest.Duplicates += duplicates
		c.metrics.AddCollected(spec.Kind, accepted)
		c.metrics.AddDuplicates(duplicates)
		c.debug("source collected", "kind", spec.Kind, "source", spec.Target,
			"entries", len(entries), "accepted", accepted, "duplicates", duplicates)
	}

	c.info("collection complete", "sources", harvest.Sources, "items", len(harvest.Items),
		"duplicates", harvest.Duplicates, "failures", len(harvest.Failures))
	return harvest, nil
}

// fetch resolves the fetcher and applies the per-source cap.
func (c *Collector) fetch(ctx context.Context, spec domain.SourceSpec) ([]domain.RawEntry, error) {
	if spec.Limit <= 0 {
		return nil, nil
	}
	fetcher, err := c.registry.Resolve(spec.Kind)
	if err != nil {
		return nil, err
	}
	entries, err := fetcher.Fetch(ctx, spec.Target, spec.Limit)
	if err != nil {
		return nil, err
	}
	if len(entries) > spec.Limit {
		entries = entries[:spec.Limit]
	}
	return entries, nil
}

// SourceCheck is the validation outcome for one configured source.
type SourceCheck struct {
	Kind   domain.SourceKind `json:"kind"`
	Target string            `json:"target"`
	Valid  bool              `json:"valid"`
	Error  string            `json:"error,omitempty"`
}

// Validate probes every source without collecting anything.
func (c *Collector) Validate(ctx context.Context, specs []domain.SourceSpec) []SourceCheck {
	checks := make([]SourceCheck, 0, len(specs))
	for _, spec := range specs {
		check := SourceCheck{Kind: spec.Kind, Target: spec.Target}
		fetcher, err := c.registry.Resolve(spec.Kind)
		if err == nil {
			err = fetcher.Probe(ctx, spec.Target)
		}
		if err != nil {
			check.Error = err.Error()
		} else {
			check.Valid = true
		}
		checks = append(checks, check)
	}
	return checks
}

func (c *Collector) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Collector) info(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Collector) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
