// Package testutil holds fixtures shared by package tests: stores, sample
// documents and agencies, and deterministic clocks and run ids.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/document"
	"github.com/roach88/cfrstat/internal/store"
)

// SampleTitle is the title number of SampleXML.
const SampleTitle = 1

// SampleShortName and SampleSlug identify the agency owning chapter I of
// SampleTitle in SampleAgencies.
const (
	SampleShortName = "AA"
	SampleSlug      = "agency-a"
)

// SampleXML is a title with one part holding two sections whose word counts
// are 3 and 2.
const SampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<ECFR>
  <DIV1 N="1" TYPE="TITLE">
    <HEAD>Title 1 - General Provisions</HEAD>
    <DIV3 N="I" TYPE="CHAPTER">
      <HEAD>Chapter I</HEAD>
      <DIV5 N="1" TYPE="PART">
        <HEAD>Part I</HEAD>
        <DIV8 N="101" TYPE="SECTION">
          <HEAD>§ 101 Scope.</HEAD>
          <P>The rule applies.</P>
        </DIV8>
        <DIV8 N="102" TYPE="SECTION">
          <HEAD>§ 102 Exceptions.</HEAD>
          <P>No exception.</P>
        </DIV8>
      </DIV5>
    </DIV3>
  </DIV1>
</ECFR>`

// SampleDate is the issue date fixtures are ingested at.
var SampleDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// OpenStore opens a fresh store in a temp directory, closed on cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ParseDocument parses xml or fails the test.
func ParseDocument(t testing.TB, xml string) *document.Node {
	t.Helper()
	root, err := document.ParseString(xml)
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return root
}

// SampleDocument returns SampleXML parsed.
func SampleDocument(t testing.TB) *document.Node {
	t.Helper()
	return ParseDocument(t, SampleXML)
}

// SampleAgencies returns agency reference data attributing chapter I of
// SampleTitle to SampleSlug, plus an unrelated agency with a child.
func SampleAgencies() []cfr.Agency {
	return []cfr.Agency{
		{
			Slug:        SampleSlug,
			Name:        "Agency A",
			ShortName:   SampleShortName,
			DisplayName: "Agency A",
			References:  []cfr.CFRReference{{Title: SampleTitle, Chapter: "I"}},
		},
		{
			Slug:        "agency-b",
			Name:        "Agency B",
			ShortName:   "BB",
			DisplayName: "Agency B",
			References:  []cfr.CFRReference{{Title: 2, Chapter: "I"}},
			Children: []cfr.Agency{
				{
					Slug:       "agency-b-office",
					Name:       "Office of Agency B",
					ShortName:  "BBO",
					References: []cfr.CFRReference{{Title: 2, Chapter: "II"}},
				},
			},
		},
	}
}

// MustDate parses YYYY-MM-DD or panics.
func MustDate(s string) time.Time {
	d, err := cfr.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
