package domain

import (
	"errors"
	"fmt"
)

// ErrConcurrentRun is returned when a run is requested while another is active.
var ErrConcurrentRun = errors.New("a pipeline run is already active")

// ConcurrentRunRejected carries the state of the run that blocked the request.
type ConcurrentRunRejected struct {
	ActiveRunID string
	ActiveStage Stage
}

func (e *ConcurrentRunRejected) Error() string {
	return fmt.Sprintf("run %s is in stage %s: %v", e.ActiveRunID, e.ActiveStage, ErrConcurrentRun)
}

func (e *ConcurrentRunRejected) Unwrap() error { return ErrConcurrentRun }

// SourceFetchFailure is a per-source error the collector recovers from.
type SourceFetchFailure struct {
	Kind   SourceKind
	Target string
	Err    error
}

func (e *SourceFetchFailure) Error() string {
	return fmt.Sprintf("fetch %s source %s: %v", e.Kind, e.Target, e.Err)
}

func (e *SourceFetchFailure) Unwrap() error { return e.Err }

// CacheIOFailure reports that the fingerprint cache could not be read or written.
type CacheIOFailure struct {
	Op   string
	Path string
	Err  error
}

func (e *CacheIOFailure) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheIOFailure) Unwrap() error { return e.Err }

// ModelInvocationFailure means both the primary and the fallback model failed.
// Err is the fallback's error.
type ModelInvocationFailure struct {
	Model string
	Err   error
}

func (e *ModelInvocationFailure) Error() string {
	return fmt.Sprintf("model %s failed after fallback: %v", e.Model, e.Err)
}

func (e *ModelInvocationFailure) Unwrap() error { return e.Err }

// StageFailure is terminal for the run it occurred in.
type StageFailure struct {
	Stage Stage
	Err   error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageFailure) Unwrap() error { return e.Err }
