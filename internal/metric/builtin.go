package metric

import "strings"

// Keyword is the literal substring counted by KeywordCount.
const Keyword = "the"

// Ids of the built-in metrics.
const (
	WordCountID = iota
	KeywordCountID
	CrossReferenceCountID
	DiversityID
	CitationDepthID
)

// Default returns the built-in catalog. Ids are stable; new metrics go at
// the end.
func Default() *Catalog {
	c := NewCatalog()
	c.MustAppend("word_count", "Word count", WordCount)
	c.MustAppend("keyword_count", "Keyword count", KeywordCount)
	c.MustAppend("cross_reference_count", "cross-references Average", CrossReferenceCount)
	c.MustAppend("diversity", "Lexical diversity", Diversity)
	c.MustAppend("citation_depth", "Citation depth", CitationDepth)
	return c
}

// WordCount counts whitespace-delimited tokens.
func WordCount(text string) float64 {
	return float64(len(strings.Fields(text)))
}

// KeywordCount counts occurrences of Keyword, case-sensitively, including
// occurrences inside longer words.
func KeywordCount(text string) float64 {
	return float64(strings.Count(text, Keyword))
}

// CrossReferenceCount counts '.' characters.
func CrossReferenceCount(text string) float64 {
	return float64(strings.Count(text, "."))
}

// Diversity counts distinct whitespace-delimited tokens.
func Diversity(text string) float64 {
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		seen[w] = struct{}{}
	}
	return float64(len(seen))
}

// CitationDepth counts '.' characters.
//
// TODO: this duplicates CrossReferenceCount. Both ids are kept so stored
// values stay comparable until a real depth measure is agreed on.
func CitationDepth(text string) float64 {
	return float64(strings.Count(text, "."))
}
