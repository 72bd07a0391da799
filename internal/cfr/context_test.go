package cfr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchyContext_WithDoesNotMutateReceiver(t *testing.T) {
	var root HierarchyContext
	a := root.With(LevelChapter, "I", "Chapter I", true)
	b := root.With(LevelChapter, "II", "Chapter II", true)

	_, ok := root.ID(LevelChapter)
	assert.False(t, ok, "root must stay empty")

	id, _ := a.ID(LevelChapter)
	assert.Equal(t, "I", id)
	label, _ := b.Label(LevelChapter)
	assert.Equal(t, "Chapter II", label)
}

func TestHierarchyContext_MissingLabelInherits(t *testing.T) {
	hc := HierarchyContext{}.With(LevelPart, "1", "Part I", true)
	hc = hc.With(LevelPart, "2", "", false)

	id, _ := hc.ID(LevelPart)
	assert.Equal(t, "2", id)
	label, ok := hc.Label(LevelPart)
	require.True(t, ok)
	assert.Equal(t, "Part I", label)
}

func TestHierarchyContext_LabelsCoverEveryID(t *testing.T) {
	hc := HierarchyContext{}.
		With(LevelTitle, "1", "Title 1", true).
		With(LevelPart, "2", "", false).
		With(LevelSection, "2.1", "§ 2.1", true)

	ids := hc.IDs()
	labels := hc.Labels()
	assert.Len(t, ids, 3)
	for name := range ids {
		_, ok := labels[name]
		assert.True(t, ok, "missing label entry for %s", name)
	}
	assert.Nil(t, labels["part"])
	require.NotNil(t, labels["section"])
	assert.Equal(t, "§ 2.1", *labels["section"])
}

func TestHierarchyContext_InvalidLevel(t *testing.T) {
	hc := HierarchyContext{}.With(Level(42), "x", "y", true)
	assert.Empty(t, hc.IDs())
	assert.False(t, hc.Has(Level(42)))
}
