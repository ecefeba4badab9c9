package optimistic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rs/xid"
)

// ErrUnknownKey is returned when an update or delete names an item the
// store does not hold. No request is sent.
var ErrUnknownKey = errors.New("unknown item")

// Remote is the server side of a list. Key extracts the identity the server
// assigned to an item.
type Remote[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, key string, item T) (T, error)
	Delete(ctx context.Context, key string) error
	Key(item T) string
}

// Store keeps a list in sync with a Remote. Each mutation shows up in
// Items immediately and is committed or rolled back when the round-trip
// finishes. The last successful server response wins; concurrent mutations
// on the same item are not reconciled. Failures are logged and kept in Err
// until the next successful call. Nothing is retried automatically.
type Store[T any] struct {
	remote Remote[T]
	name   string
	logger *slog.Logger

	mu    sync.Mutex
	state State[T]
	err   error
}

// NewStore returns an empty store; call Load to fill it. name tags log lines.
func NewStore[T any](name string, remote Remote[T], logger *slog.Logger) *Store[T] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store[T]{remote: remote, name: name, logger: logger}
}

// Load replaces the list with the server's. Open mutations are dropped;
// their late results no longer match anything and are ignored.
func (s *Store[T]) Load(ctx context.Context) error {
	items, err := s.remote.List(ctx)
	if err != nil {
		s.fail("load", "", err)
		return err
	}
	entries := make([]Entry[T], len(items))
	for i, it := range items {
		entries[i] = Entry[T]{Key: s.remote.Key(it), Value: it}
	}

	s.mu.Lock()
	s.state = NewState(entries)
	s.err = nil
	s.mu.Unlock()
	return nil
}

// Items returns the visible list, optimistic changes included.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.state.Items))
	for i, e := range s.state.Items {
		out[i] = e.Value
	}
	return out
}

// Err is the last mutation or load failure, nil after a success.
func (s *Store[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Pending reports how many mutations are in flight.
func (s *Store[T]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Pending()
}

// Create adds item locally, then asks the server to create it. On success
// the local copy is replaced by the server's.
func (s *Store[T]) Create(ctx context.Context, item T) (T, error) {
	id := xid.New().String()
	s.dispatch(Action[T]{Kind: Create, MutationID: id, Key: id, Value: item})

	created, err := s.remote.Create(ctx, item)
	if err != nil {
		s.dispatch(Action[T]{Kind: Rollback, MutationID: id})
		s.fail("create", "", err)
		var zero T
		return zero, err
	}
	s.succeed(Action[T]{Kind: Commit, MutationID: id, Key: s.remote.Key(created), Value: created})
	return created, nil
}

// Update replaces the item with key locally, then on the server.
func (s *Store[T]) Update(ctx context.Context, key string, item T) (T, error) {
	id := xid.New().String()
	if !s.tryDispatch(Action[T]{Kind: Update, MutationID: id, Key: key, Value: item}) {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", s.name, key, ErrUnknownKey)
	}

	updated, err := s.remote.Update(ctx, key, item)
	if err != nil {
		s.dispatch(Action[T]{Kind: Rollback, MutationID: id})
		s.fail("update", key, err)
		var zero T
		return zero, err
	}
	s.succeed(Action[T]{Kind: Commit, MutationID: id, Key: s.remote.Key(updated), Value: updated})
	return updated, nil
}

// Delete removes the item with key locally, then on the server. A failure
// puts it back where it was.
func (s *Store[T]) Delete(ctx context.Context, key string) error {
	id := xid.New().String()
	if !s.tryDispatch(Action[T]{Kind: Delete, MutationID: id, Key: key}) {
		return fmt.Errorf("%s %s: %w", s.name, key, ErrUnknownKey)
	}

	if err := s.remote.Delete(ctx, key); err != nil {
		s.dispatch(Action[T]{Kind: Rollback, MutationID: id})
		s.fail("delete", key, err)
		return err
	}
	s.succeed(Action[T]{Kind: Commit, MutationID: id, Key: key})
	return nil
}

func (s *Store[T]) dispatch(a Action[T]) {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	s.mu.Unlock()
}

// tryDispatch applies a and reports whether it opened a mutation.
func (s *Store[T]) tryDispatch(a Action[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
	return s.state.IsPending(a.MutationID)
}

func (s *Store[T]) succeed(a Action[T]) {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	s.err = nil
	s.mu.Unlock()
}

func (s *Store[T]) fail(op, key string, err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.logger.Warn("mutation failed",
		slog.String("store", s.name),
		slog.String("op", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}
