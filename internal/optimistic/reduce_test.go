package optimistic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func keys(s State[string]) []string {
	out := make([]string, len(s.Items))
	for i, e := range s.Items {
		out[i] = e.Key
	}
	return out
}

func values(s State[string]) []string {
	out := make([]string, len(s.Items))
	for i, e := range s.Items {
		out[i] = e.Value
	}
	return out
}

func seed() State[string] {
	return NewState([]Entry[string]{{"a", "alpha"}, {"b", "beta"}, {"c", "gamma"}})
}

func TestReduce_CreateCommit(t *testing.T) {
	s := Reduce(seed(), Action[string]{Kind: Create, MutationID: "m1", Key: "m1", Value: "delta"})
	assert.Equal(t, []string{"a", "b", "c", "m1"}, keys(s))
	assert.True(t, s.IsPending("m1"))

	s = Reduce(s, Action[string]{Kind: Commit, MutationID: "m1", Key: "d", Value: "delta (saved)"})
	assert.Equal(t, []string{"a", "b", "c", "d"}, keys(s))
	assert.Equal(t, "delta (saved)", s.Items[3].Value)
	assert.Zero(t, s.Pending())
}

func TestReduce_Rollbacks(t *testing.T) {
	tests := []struct {
		name   string
		action Action[string]
	}{
		{"create", Action[string]{Kind: Create, MutationID: "m", Key: "m", Value: "new"}},
		{"update", Action[string]{Kind: Update, MutationID: "m", Key: "b", Value: "BETA"}},
		{"delete", Action[string]{Kind: Delete, MutationID: "m", Key: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := seed()
			mid := Reduce(before, tt.action)
			assert.NotEqual(t, values(before), values(mid))

			after := Reduce(mid, Action[string]{Kind: Rollback, MutationID: "m"})
			assert.Equal(t, keys(before), keys(after))
			assert.Equal(t, values(before), values(after))
			assert.Zero(t, after.Pending())
		})
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := seed()
	_ = Reduce(s, Action[string]{Kind: Update, MutationID: "m", Key: "a", Value: "changed"})
	_ = Reduce(s, Action[string]{Kind: Delete, MutationID: "n", Key: "c"})
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, values(s))
	assert.Zero(t, s.Pending())
}

func TestReduce_UnknownTargetsAreNoOps(t *testing.T) {
	s := seed()
	assert.Equal(t, s, Reduce(s, Action[string]{Kind: Update, MutationID: "m", Key: "zzz", Value: "x"}))
	assert.Equal(t, s, Reduce(s, Action[string]{Kind: Delete, MutationID: "m", Key: "zzz"}))
	assert.Equal(t, s, Reduce(s, Action[string]{Kind: Commit, MutationID: "nope"}))
	assert.Equal(t, s, Reduce(s, Action[string]{Kind: Rollback, MutationID: "nope"}))
	assert.Equal(t, s, Reduce(s, Action[string]{Kind: Create, MutationID: "m", Key: "a"}), "duplicate key")
}

func TestReduce_DeleteRollbackRestoresPosition(t *testing.T) {
	s := Reduce(seed(), Action[string]{Kind: Delete, MutationID: "m1", Key: "a"})
	s = Reduce(s, Action[string]{Kind: Delete, MutationID: "m2", Key: "c"})
	assert.Equal(t, []string{"b"}, keys(s))

	s = Reduce(s, Action[string]{Kind: Rollback, MutationID: "m1"})
	assert.Equal(t, []string{"a", "b"}, keys(s))
	s = Reduce(s, Action[string]{Kind: Commit, MutationID: "m2"})
	assert.Equal(t, []string{"a", "b"}, keys(s))
}

func TestReduce_InterleavedMutationsResolveIndependently(t *testing.T) {
	s := Reduce(seed(), Action[string]{Kind: Update, MutationID: "u", Key: "a", Value: "ALPHA"})
	s = Reduce(s, Action[string]{Kind: Create, MutationID: "c", Key: "c-tmp", Value: "new"})

	s = Reduce(s, Action[string]{Kind: Rollback, MutationID: "c"})
	s = Reduce(s, Action[string]{Kind: Commit, MutationID: "u", Key: "a", Value: "ALPHA!"})

	assert.Equal(t, []string{"ALPHA!", "beta", "gamma"}, values(s))
	assert.Zero(t, s.Pending())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "rollback", Rollback.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
