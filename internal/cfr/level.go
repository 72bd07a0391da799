package cfr

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is a position in the regulatory hierarchy, coarsest first.
type Level int

const (
	LevelTitle Level = iota
	LevelChapter
	LevelSubchapter
	LevelPart
	LevelSubpart
	LevelSection
)

// NumLevels is the number of hierarchy levels.
const NumLevels = int(LevelSection) + 1

var levelNames = [NumLevels]string{"title", "chapter", "subchapter", "part", "subpart", "section"}

var levelDisplayNames = [NumLevels]string{"Title", "Chapter", "Subchapter", "Part", "Subpart", "Section"}

// divTypes maps the TYPE attribute of a DIV element to its level.
// SUBCHAP is the document vocabulary's spelling of subchapter.
var divTypes = map[string]Level{
	"TITLE":   LevelTitle,
	"CHAPTER": LevelChapter,
	"SUBCHAP": LevelSubchapter,
	"PART":    LevelPart,
	"SUBPART": LevelSubpart,
	"SECTION": LevelSection,
}

// Levels returns every level, coarsest first.
func Levels() []Level {
	return []Level{LevelTitle, LevelChapter, LevelSubchapter, LevelPart, LevelSubpart, LevelSection}
}

// Valid reports whether l is one of the six hierarchy levels.
func (l Level) Valid() bool {
	return l >= LevelTitle && l <= LevelSection
}

// String returns the machine name ("part").
func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// DisplayName returns the presentation name ("Part").
func (l Level) DisplayName() string {
	if !l.Valid() {
		return l.String()
	}
	return levelDisplayNames[l]
}

// LevelForDivType returns the level for a DIV TYPE attribute.
// Container types such as SUBTITLE, SUBJGRP and APPENDIX report false.
func LevelForDivType(divType string) (Level, bool) {
	l, ok := divTypes[divType]
	return l, ok
}

// ParseLevel accepts a machine name, a display name or a numeric index (0-5).
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		if l := Level(n); l.Valid() {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown level %q: must be one of %v or 0-%d", s, levelNames, NumLevels-1)
}
