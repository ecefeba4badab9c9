// Package matchfeed keeps a member's pre-apply matches on the client side.
//
// The server decides the order; the feed never re-sorts. Dismiss and
// MarkApplied remove an entry only after the server confirmed the change.
package matchfeed

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/sakif/careerdeck/internal/model"
)

// API is the subset of the HTTP client the feed needs.
type API interface {
	Matches(ctx context.Context, limit int) ([]model.Match, error)
	DismissMatch(ctx context.Context, jobID string) error
	MarkApplied(ctx context.Context, jobID string) error
}

var (
	// ErrUnknownMatch is returned for a job that is not in the feed. No
	// request is sent.
	ErrUnknownMatch = errors.New("no match for job in feed")
	// ErrSuperseded is returned by a Load whose response arrived after a
	// newer Load started. Its result is dropped.
	ErrSuperseded = errors.New("load superseded by a newer load")
)

// State of the feed.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	// Empty is a successful load with no matches, not an error.
	Empty
	// Failed means the last load failed; Load may be called again.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Feed is safe for concurrent use.
type Feed struct {
	api    API
	logger *slog.Logger

	mu      sync.Mutex
	gen     uint64
	state   State
	matches []model.Match
	err     error
}

// New returns an Idle feed. A nil logger discards.
func New(api API, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Feed{api: api, logger: logger}
}

// Load fetches up to limit matches. On failure the previous list is kept
// and the feed moves to Failed. When loads overlap only the latest one is
// applied; earlier ones return ErrSuperseded.
func (f *Feed) Load(ctx context.Context, limit int) error {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.state = Loading
	f.mu.Unlock()

	matches, err := f.api.Matches(ctx, limit)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		f.logger.Debug("dropping superseded match load", slog.Uint64("gen", gen))
		return ErrSuperseded
	}
	if err != nil {
		f.state = Failed
		f.err = err
		f.logger.Warn("loading matches failed", slog.String("error", err.Error()))
		return err
	}
	f.matches = matches
	f.err = nil
	if len(matches) == 0 {
		f.state = Empty
	} else {
		f.state = Loaded
	}
	return nil
}

// Dismiss hides the match for jobID.
func (f *Feed) Dismiss(ctx context.Context, jobID string) error {
	return f.remove(ctx, "dismiss", jobID, f.api.DismissMatch)
}

// MarkApplied records an application for jobID.
func (f *Feed) MarkApplied(ctx context.Context, jobID string) error {
	return f.remove(ctx, "applied", jobID, f.api.MarkApplied)
}

func (f *Feed) remove(ctx context.Context, op, jobID string, call func(context.Context, string) error) error {
	f.mu.Lock()
	known := slices.ContainsFunc(f.matches, func(m model.Match) bool { return m.Job.ID == jobID })
	f.mu.Unlock()
	if !known {
		return ErrUnknownMatch
	}

	if err := call(ctx, jobID); err != nil {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		f.logger.Warn("match update failed",
			slog.String("op", op),
			slog.String("jobID", jobID),
			slog.String("error", err.Error()),
		)
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	// A reload may have run meanwhile; remove from whatever list is current.
	if i := slices.IndexFunc(f.matches, func(m model.Match) bool { return m.Job.ID == jobID }); i >= 0 {
		f.matches = slices.Delete(slices.Clone(f.matches), i, i+1)
	}
	f.err = nil
	if len(f.matches) == 0 && f.state == Loaded {
		f.state = Empty
	}
	return nil
}

// Matches returns the current list in server order.
func (f *Feed) Matches() []model.Match {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.matches)
}

// State reports the feed state.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err is the last load or mutation error, nil after a success.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Retryable reports whether the last load failed and can be retried.
func (f *Feed) Retryable() bool {
	return f.State() == Failed
}
