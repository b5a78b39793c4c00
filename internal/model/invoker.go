package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/fallback"
	"github.com/failsafe-go/failsafe-go/timeout"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/metrics"
	"IntelBrief/internal/ports"
)

const defaultAttemptTimeout = 2 * time.Minute

// ErrEmptyReply is returned by an attempt whose model produced no text.
var ErrEmptyReply = errors.New("model returned an empty reply")

// Options are the sampling parameters of a call. Both must be set by the caller.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Validate rejects options that would otherwise be silently defaulted downstream.
func (o Options) Validate() error {
	if o.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", o.MaxTokens)
	}
	if o.Temperature < 0 {
		return fmt.Errorf("temperature must not be negative, got %v", o.Temperature)
	}
	return nil
}

// Generator is the only way components talk to a generative model.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Config selects the models and the per-attempt time limit.
type Config struct {
	Primary  string
	Fallback string
	Timeout  time.Duration
}

// Invoker calls the primary model and, on any failure, the fallback model with
// the same options. Each attempt runs under its own timeout.
type Invoker struct {
	endpoint ports.TextGenerator
	cfg      Config
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

var _ Generator = (*Invoker)(nil)

// NewInvoker wires a completion endpoint. An empty fallback model means the
// primary model is attempted a second time.
func NewInvoker(endpoint ports.TextGenerator, cfg Config, rec *metrics.Recorder, logger *slog.Logger) *Invoker {
	if strings.TrimSpace(cfg.Fallback) == "" {
		cfg.Fallback = cfg.Primary
	}
	return &Invoker{endpoint: endpoint, cfg: cfg, metrics: rec, logger: logger}
}

// WithModels returns a copy of the invoker using other models, keeping the
// endpoint and timeout. Empty arguments keep the current model.
func (i *Invoker) WithModels(primary, fallbackModel string) *Invoker {
	out := *i
	if p := strings.TrimSpace(primary); p != "" {
		out.cfg.Primary = p
	}
	if f := strings.TrimSpace(fallbackModel); f != "" {
		out.cfg.Fallback = f
	}
	return &out
}

// PrimaryModel names the model tried first.
func (i *Invoker) PrimaryModel() string {
	return i.cfg.Primary
}

// Generate returns the first successful completion. When both attempts fail
// the result is a *domain.ModelInvocationFailure carrying the fallback error;
// the primary error is only logged.
func (i *Invoker) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if i.endpoint == nil {
		return "", errors.New("model endpoint is not configured")
	}
	if err := opts.Validate(); err != nil {
		return "", fmt.Errorf("invalid model options: %w", err)
	}

	useFallback := fallback.NewWithFunc[string](func(exec failsafe.Execution[string]) (string, error) {
		i.warn("primary model failed, trying fallback",
			"model", i.cfg.Primary, "fallback", i.cfg.Fallback, "error", exec.LastError())

		text, err := failsafe.With[string](i.newTimeout()).
			WithContext(ctx).
			GetWithExecution(func(attempt failsafe.Execution[string]) (string, error) {
				return i.attempt(attempt.Context(), i.cfg.Fallback, prompt, opts)
			})
		if err != nil {
			i.logErr("fallback model failed", "model", i.cfg.Fallback, "error", err)
			return "", &domain.ModelInvocationFailure{Model: i.cfg.Fallback, Err: err}
		}
		return text, nil
	})

	return failsafe.With[string](useFallback, i.newTimeout()).
		WithContext(ctx).
		GetWithExecution(func(exec failsafe.Execution[string]) (string, error) {
			return i.attempt(exec.Context(), i.cfg.Primary, prompt, opts)
		})
}

func (i *Invoker) newTimeout() timeout.Timeout[string] {
	limit := i.cfg.Timeout
	if limit <= 0 {
		limit = defaultAttemptTimeout
	}
	return timeout.New[string](limit)
}

func (i *Invoker) attempt(ctx context.Context, model, prompt string, opts Options) (string, error) {
	text, err := i.endpoint.Generate(ctx, ports.GenerateRequest{
		Model:       model,
		Prompt:      prompt,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyReply
	}
	if err != nil {
		i.metrics.ModelCall(model, "error")
		return "", fmt.Errorf("model %s: %w", model, err)
	}
	i.metrics.ModelCall(model, "ok")
	return text, nil
}

func (i *Invoker) warn(msg string, args ...interface{}) {
	if i.logger != nil {
		i.logger.Warn(msg, args...)
	}
}

func (i *Invoker) logErr(msg string, args ...interface{}) {
	if i.logger != nil {
		i.logger.Error(msg, args...)
	}
}
