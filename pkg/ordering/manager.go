// Package ordering maintains the dense order index of each ordered section:
// indexes are always exactly 0..n-1 with no gaps and no duplicates. Every
// operation here must run inside the caller's transaction.
package ordering

import (
	"context"
	"errors"
	"fmt"

	"github.com/careerark/arc/pkg/models"
)

// ErrUnorderedSection is returned for sections without an order index.
var ErrUnorderedSection = errors.New("section has no order index")

// Store is the slice of entry storage the manager needs. Implementations
// shift rows inside the ambient transaction; the unique index on
// (profile_id, order_index) is deferred, so intermediate states may collide.
type Store interface {
	// Count returns the number of entries in the section.
	Count(ctx context.Context, profileID string, section models.SectionType) (int, error)
	// IndexOf returns the order index of an entry.
	IndexOf(ctx context.Context, profileID string, section models.SectionType, entryID string) (int, error)
	// ShiftRange adds delta to every order index in [from, to].
	ShiftRange(ctx context.Context, profileID string, section models.SectionType, from, to, delta int) error
	// SetIndex moves a single entry to the given order index.
	SetIndex(ctx context.Context, profileID string, section models.SectionType, entryID string, index int) error
}

// Manager computes and applies order index adjustments.
type Manager struct {
	store Store
}

// NewManager creates a Manager.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// AppendIndex returns the index a new entry takes at the end of the section.
func (m *Manager) AppendIndex(ctx context.Context, profileID string, section models.SectionType) (int, error) {
	if !section.Ordered() {
		return 0, ErrUnorderedSection
	}
	return m.store.Count(ctx, profileID, section)
}

// InsertAt makes room for a new entry at the given index, shifting later
// entries up by one. The index is clamped to [0, n]. Returns the index the
// new entry should take.
func (m *Manager) InsertAt(ctx context.Context, profileID string, section models.SectionType, index int) (int, error) {
	if !section.Ordered() {
		return 0, ErrUnorderedSection
	}
	count, err := m.store.Count(ctx, profileID, section)
	if err != nil {
		return 0, err
	}
	index = clamp(index, 0, count)
	if index < count {
		if err := m.store.ShiftRange(ctx, profileID, section, index, count-1, 1); err != nil {
			return 0, fmt.Errorf("shift for insert: %w", err)
		}
	}
	return index, nil
}

// CloseGap shifts every entry after a removed index down by one. Call after
// deleting the entry that held removedIndex.
func (m *Manager) CloseGap(ctx context.Context, profileID string, section models.SectionType, removedIndex int) error {
	if !section.Ordered() {
		return nil
	}
	count, err := m.store.Count(ctx, profileID, section)
	if err != nil {
		return err
	}
	if removedIndex >= count {
		return nil
	}
	if err := m.store.ShiftRange(ctx, profileID, section, removedIndex+1, count, -1); err != nil {
		return fmt.Errorf("close gap: %w", err)
	}
	return nil
}

// Move relocates an entry to a new index, shifting the entries in between by
// one. The target index is clamped to [0, n-1]. Moving to the current index
// is a no-op.
func (m *Manager) Move(ctx context.Context, profileID string, section models.SectionType, entryID string, newIndex int) error {
	if !section.Ordered() {
		return ErrUnorderedSection
	}
	count, err := m.store.Count(ctx, profileID, section)
	if err != nil {
		return err
	}
	oldIndex, err := m.store.IndexOf(ctx, profileID, section, entryID)
	if err != nil {
		return err
	}

	newIndex = clamp(newIndex, 0, count-1)
	if newIndex == oldIndex {
		return nil
	}

	if oldIndex < newIndex {
		err = m.store.ShiftRange(ctx, profileID, section, oldIndex+1, newIndex, -1)
	} else {
		err = m.store.ShiftRange(ctx, profileID, section, newIndex, oldIndex-1, 1)
	}
	if err != nil {
		return fmt.Errorf("shift for move: %w", err)
	}

	if err := m.store.SetIndex(ctx, profileID, section, entryID, newIndex); err != nil {
		return fmt.Errorf("place moved entry: %w", err)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
