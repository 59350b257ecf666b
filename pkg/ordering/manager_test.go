package ordering

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerark/arc/pkg/models"
)

// memStore is an in-memory Store over entryID -> index.
type memStore struct {
	indexes map[string]int
}

func newMemStore(ids ...string) *memStore {
	s := &memStore{indexes: map[string]int{}}
	for i, id := range ids {
		s.indexes[id] = i
	}
	return s
}

func (s *memStore) Count(_ context.Context, _ string, _ models.SectionType) (int, error) {
	return len(s.indexes), nil
}

func (s *memStore) IndexOf(_ context.Context, _ string, _ models.SectionType, entryID string) (int, error) {
	idx, ok := s.indexes[entryID]
	if !ok {
		return 0, fmt.Errorf("entry %s not found", entryID)
	}
	return idx, nil
}

func (s *memStore) ShiftRange(_ context.Context, _ string, _ models.SectionType, from, to, delta int) error {
	for id, idx := range s.indexes {
		if idx >= from && idx <= to {
			s.indexes[id] = idx + delta
		}
	}
	return nil
}

func (s *memStore) SetIndex(_ context.Context, _ string, _ models.SectionType, entryID string, index int) error {
	s.indexes[entryID] = index
	return nil
}

func (s *memStore) remove(entryID string) int {
	idx := s.indexes[entryID]
	delete(s.indexes, entryID)
	return idx
}

// order returns entry IDs sorted by index, and fails if indexes are not a
// dense 0..n-1 permutation.
func (s *memStore) order(t *testing.T) []string {
	t.Helper()
	ids := make([]string, 0, len(s.indexes))
	for id := range s.indexes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.indexes[ids[i]] < s.indexes[ids[j]] })
	for want, id := range ids {
		require.Equal(t, want, s.indexes[id], "index of %s", id)
	}
	return ids
}

func TestAppendIndex(t *testing.T) {
	m := NewManager(newMemStore("a", "b", "c"))

	idx, err := m.AppendIndex(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
}

func TestInsertAtShiftsLaterEntries(t *testing.T) {
	store := newMemStore("a", "b", "c")
	m := NewManager(store)

	idx, err := m.InsertAt(context.Background(), "p1", models.SectionWorkExperience, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	store.indexes["new"] = idx
	assert.Equal(t, []string{"a", "new", "b", "c"}, store.order(t))
}

func TestInsertAtClampsToEnd(t *testing.T) {
	store := newMemStore("a", "b")
	m := NewManager(store)

	idx, err := m.InsertAt(context.Background(), "p1", models.SectionWorkExperience, 99)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestCloseGapAfterDelete(t *testing.T) {
	store := newMemStore("a", "b", "c", "d")
	m := NewManager(store)

	removed := store.remove("b")
	require.NoError(t, m.CloseGap(context.Background(), "p1", models.SectionWorkExperience, removed))
	assert.Equal(t, []string{"a", "c", "d"}, store.order(t))
}

func TestCloseGapAfterDeletingLast(t *testing.T) {
	store := newMemStore("a", "b")
	m := NewManager(store)

	removed := store.remove("b")
	require.NoError(t, m.CloseGap(context.Background(), "p1", models.SectionWorkExperience, removed))
	assert.Equal(t, []string{"a"}, store.order(t))
}

func TestMoveForward(t *testing.T) {
	store := newMemStore("a", "b", "c", "d")
	m := NewManager(store)

	require.NoError(t, m.Move(context.Background(), "p1", models.SectionWorkExperience, "a", 2))
	assert.Equal(t, []string{"b", "c", "a", "d"}, store.order(t))
}

func TestMoveBackward(t *testing.T) {
	store := newMemStore("a", "b", "c", "d")
	m := NewManager(store)

	require.NoError(t, m.Move(context.Background(), "p1", models.SectionWorkExperience, "d", 0))
	assert.Equal(t, []string{"d", "a", "b", "c"}, store.order(t))
}

func TestMoveToSameIndexIsNoop(t *testing.T) {
	store := newMemStore("a", "b", "c")
	m := NewManager(store)

	require.NoError(t, m.Move(context.Background(), "p1", models.SectionWorkExperience, "b", 1))
	assert.Equal(t, []string{"a", "b", "c"}, store.order(t))
}

func TestMoveClampsTarget(t *testing.T) {
	store := newMemStore("a", "b", "c")
	m := NewManager(store)

	require.NoError(t, m.Move(context.Background(), "p1", models.SectionWorkExperience, "a", 99))
	assert.Equal(t, []string{"b", "c", "a"}, store.order(t))
}

func TestUnorderedSectionRejected(t *testing.T) {
	m := NewManager(newMemStore("a"))

	_, err := m.AppendIndex(context.Background(), "p1", models.SectionSkill)
	assert.ErrorIs(t, err, ErrUnorderedSection)

	err = m.Move(context.Background(), "p1", models.SectionSkill, "a", 0)
	assert.ErrorIs(t, err, ErrUnorderedSection)
}
