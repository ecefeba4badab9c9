// Package optimistic applies list mutations locally before the server
// confirms them and reverses them when it does not.
//
// Reduce is a pure function over State, so every rollback path can be
// tested without a network. Store drives Reduce around a Remote.
package optimistic

import "slices"

// Kind is the type of an Action.
type Kind int

const (
	Create Kind = iota
	Update
	Delete
	Commit
	Rollback
)

func (k Kind) String() string {
	switch k {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	case Commit:
		return "commit"
	case Rollback:
		return "rollback"
	}
	return "unknown"
}

// Entry is one list item with the key it is addressed by. An optimistic
// create is keyed by its mutation ID until the server assigns a real key.
type Entry[T any] struct {
	Key   string
	Value T
}

// Action is a state transition. Create, Update and Delete open a mutation
// identified by MutationID; Commit and Rollback close it.
//
//	Create   Key = temporary key, Value = local item
//	Update   Key = target, Value = new item
//	Delete   Key = target
//	Commit   Key/Value = server's version (ignored for deletes)
//	Rollback undo the mutation
type Action[T any] struct {
	Kind       Kind
	MutationID string
	Key        string
	Value      T
}

type pending[T any] struct {
	kind  Kind
	key   string
	prev  Entry[T]
	index int
}

// State is the visible list plus the mutations still awaiting the server.
type State[T any] struct {
	Items   []Entry[T]
	pending map[string]pending[T]
}

// NewState starts from a server-provided list.
func NewState[T any](items []Entry[T]) State[T] {
	return State[T]{Items: slices.Clone(items)}
}

// Pending reports how many mutations are unresolved.
func (s State[T]) Pending() int { return len(s.pending) }

// IsPending reports whether mutationID is still open.
func (s State[T]) IsPending(mutationID string) bool {
	_, ok := s.pending[mutationID]
	return ok
}

func (s State[T]) indexOf(key string) int {
	return slices.IndexFunc(s.Items, func(e Entry[T]) bool { return e.Key == key })
}

// Reduce returns the state after a. The input state is not modified.
// Actions that reference an unknown key or mutation leave the state as is.
func Reduce[T any](s State[T], a Action[T]) State[T] {
	next := State[T]{Items: slices.Clone(s.Items), pending: make(map[string]pending[T], len(s.pending)+1)}
	for id, p := range s.pending {
		next.pending[id] = p
	}

	switch a.Kind {
	case Create:
		if next.indexOf(a.Key) >= 0 {
			return s
		}
		next.Items = append(next.Items, Entry[T]{Key: a.Key, Value: a.Value})
		next.pending[a.MutationID] = pending[T]{kind: Create, key: a.Key}

	case Update:
		i := next.indexOf(a.Key)
		if i < 0 {
			return s
		}
		next.pending[a.MutationID] = pending[T]{kind: Update, key: a.Key, prev: next.Items[i], index: i}
		next.Items[i] = Entry[T]{Key: a.Key, Value: a.Value}

	case Delete:
		i := next.indexOf(a.Key)
		if i < 0 {
			return s
		}
		next.pending[a.MutationID] = pending[T]{kind: Delete, key: a.Key, prev: next.Items[i], index: i}
		next.Items = slices.Delete(next.Items, i, i+1)

	case Commit:
		p, ok := next.pending[a.MutationID]
		if !ok {
			return s
		}
		delete(next.pending, a.MutationID)
		if p.kind == Delete {
			break
		}
		// The entry may have been removed by a later mutation.
		if i := next.indexOf(p.key); i >= 0 {
			next.Items[i] = Entry[T]{Key: a.Key, Value: a.Value}
		}

	case Rollback:
		p, ok := next.pending[a.MutationID]
		if !ok {
			return s
		}
		delete(next.pending, a.MutationID)
		switch p.kind {
		case Create:
			if i := next.indexOf(p.key); i >= 0 {
				next.Items = slices.Delete(next.Items, i, i+1)
			}
		case Update:
			if i := next.indexOf(p.key); i >= 0 {
				next.Items[i] = p.prev
			}
		case Delete:
			if next.indexOf(p.key) < 0 {
				next.Items = slices.Insert(next.Items, min(p.index, len(next.Items)), p.prev)
			}
		}

	default:
		return s
	}
	return next
}
