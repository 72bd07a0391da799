package cfr

import "time"

// Section is the extracted text of one leaf section for one issue date.
type Section struct {
	Title       int       `json:"title"`
	Date        time.Time `json:"date"`
	SectionID   string    `json:"section_id"`
	Content     string    `json:"content"`
	ContentHash string    `json:"content_hash"`
}

// Dimension denormalizes the hierarchy and agency attribution of a section.
// Exactly one Dimension exists per Section.
type Dimension struct {
	Title        int       `json:"title"`
	Date         time.Time `json:"date"`
	SectionID    string    `json:"section_id"`
	ChapterID    string    `json:"chapter_id"`
	SubchapterID string    `json:"subchapter_id"`
	PartID       string    `json:"part_id"`
	SubpartID    string    `json:"subpart_id"`
	AgencySlug   string    `json:"agency_slug"`

	TitleLabel      *string `json:"title_label"`
	ChapterLabel    *string `json:"chapter_label"`
	SubchapterLabel *string `json:"subchapter_label"`
	PartLabel       *string `json:"part_label"`
	SubpartLabel    *string `json:"subpart_label"`
	SectionLabel    *string `json:"section_label"`
}

// NewDimension builds the Dimension for a section from its hierarchy context.
func NewDimension(title int, date time.Time, hc HierarchyContext, agencySlug string) Dimension {
	return Dimension{
		Title:           title,
		Date:            DayOf(date),
		SectionID:       hc.IDOrEmpty(LevelSection),
		ChapterID:       hc.IDOrEmpty(LevelChapter),
		SubchapterID:    hc.IDOrEmpty(LevelSubchapter),
		PartID:          hc.IDOrEmpty(LevelPart),
		SubpartID:       hc.IDOrEmpty(LevelSubpart),
		AgencySlug:      agencySlug,
		TitleLabel:      hc.LabelPtr(LevelTitle),
		ChapterLabel:    hc.LabelPtr(LevelChapter),
		SubchapterLabel: hc.LabelPtr(LevelSubchapter),
		PartLabel:       hc.LabelPtr(LevelPart),
		SubpartLabel:    hc.LabelPtr(LevelSubpart),
		SectionLabel:    hc.LabelPtr(LevelSection),
	}
}

// MetricRecord is one computed metric value for one section and date.
type MetricRecord struct {
	Title     int       `json:"title"`
	Date      time.Time `json:"date"`
	SectionID string    `json:"section_id"`
	MetricID  int       `json:"metric_id"`
	Value     float64   `json:"value"`
}

// Key returns the record's idempotency key.
func (m MetricRecord) Key() MetricKey {
	return MetricKey{Title: m.Title, Date: FormatDate(m.Date), SectionID: m.SectionID, MetricID: m.MetricID}
}

// MetricKey identifies a MetricRecord. Computation is skipped for any key
// already persisted.
type MetricKey struct {
	Title     int
	Date      string
	SectionID string
	MetricID  int
}

// RollupRow is one group of an aggregation query.
type RollupRow struct {
	AgencySlug string    `json:"agency_slug"`
	Title      int       `json:"title"`
	LevelName  string    `json:"level_name"`
	LevelValue string    `json:"level_value"`
	Date       time.Time `json:"date"`
	Value      float64   `json:"value"`
}

// Agency is reference data describing a government agency.
type Agency struct {
	Slug         string         `json:"slug"`
	Name         string         `json:"name"`
	ShortName    string         `json:"short_name"`
	DisplayName  string         `json:"display_name"`
	SortableName string         `json:"sortable_name"`
	ParentSlug   string         `json:"parent_slug,omitempty"`
	References   []CFRReference `json:"cfr_references"`
	Children     []Agency       `json:"children,omitempty"`
}

// Flatten returns a and all its descendants, depth first, with ParentSlug
// filled in for children. Children of the returned agencies are cleared.
func (a Agency) Flatten() []Agency {
	var out []Agency
	var walk func(ag Agency, parent string)
	walk = func(ag Agency, parent string) {
		children := ag.Children
		ag.Children = nil
		if parent != "" {
			ag.ParentSlug = parent
		}
		out = append(out, ag)
		for _, child := range children {
			walk(child, ag.Slug)
		}
	}
	walk(a, a.ParentSlug)
	return out
}

// CFRReference attributes part of a title to an agency.
type CFRReference struct {
	AgencySlug string `json:"agency_slug,omitempty"`
	Title      int    `json:"title"`
	Subtitle   string `json:"subtitle,omitempty"`
	Chapter    string `json:"chapter,omitempty"`
	Subchapter string `json:"subchapter,omitempty"`
	Part       string `json:"part,omitempty"`
}

// Title is reference data describing a CFR title.
type Title struct {
	Number          int    `json:"number"`
	Name            string `json:"name"`
	LatestAmendedOn string `json:"latest_amended_on"`
	LatestIssueDate string `json:"latest_issue_date"`
	UpToDateAsOf    string `json:"up_to_date_as_of"`
	Reserved        bool   `json:"reserved"`
}

// RunKind distinguishes ingest runs from compute runs in run history.
type RunKind string

const (
	RunKindIngest  RunKind = "ingest"
	RunKindCompute RunKind = "compute"
)

// Run records the outcome of one IngestDocument or ComputeMetrics call.
type Run struct {
	ID         string    `json:"id"`
	Kind       RunKind   `json:"kind"`
	Title      int       `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Accepted   int       `json:"accepted"`
	Skipped    int       `json:"skipped"`
	Written    int       `json:"written"`
	Discarded  int       `json:"discarded"`
	FinishedAt time.Time `json:"finished_at"`
}
