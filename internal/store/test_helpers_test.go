package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/cfrstat/internal/cfr"
)

// createTestStore opens a fresh store in a temp directory, closed on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func day(s string) time.Time {
	d, err := cfr.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string { return &s }

// testSection builds a section and a dimension under title 1, chapter I,
// part 1 on the given date.
func testSection(date time.Time, sectionID, content string) (cfr.Section, cfr.Dimension) {
	hc := cfr.HierarchyContext{}.
		With(cfr.LevelTitle, "1", "General Provisions", true).
		With(cfr.LevelChapter, "I", "Chapter I", true).
		With(cfr.LevelPart, "1", "Part I", true).
		With(cfr.LevelSection, sectionID, "§ "+sectionID, true)
	return cfr.NewSection(1, date, sectionID, content), cfr.NewDimension(1, date, hc, "agency-a")
}
