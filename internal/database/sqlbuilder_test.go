package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertBuilderOnConflictDoNothing(t *testing.T) {
	ib := NewInsertBuilder().
		InsertInto("skills").
		Cols("id", "profile_id", "name", "normalized_name").
		Values("s1", "p1", "Go", "go").
		OnConflictDoNothing("profile_id", "normalized_name")

	query, args := ib.Build()
	assert.Contains(t, query, "INSERT INTO skills")
	assert.Contains(t, query, "ON CONFLICT (profile_id, normalized_name) DO NOTHING")
	assert.Len(t, args, 4)
}

func TestInsertBuilderOnConflictDoNothingWithoutTarget(t *testing.T) {
	ib := NewInsertBuilder().
		InsertInto("profiles").
		Cols("id").
		Values("p1").
		OnConflictDoNothing()

	query, _ := ib.Build()
	assert.Contains(t, query, "ON CONFLICT DO NOTHING")
}
