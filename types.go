package sift

// ═══════════════════════════════════════════════════════════════════════════════
// CORE TYPES
// ═══════════════════════════════════════════════════════════════════════════════
// The data model of a sift index, from build-time input to query-time output:
//
//	Document       → metadata record shipped inside the index
//	FieldType      → structural weight of a text span (Title > Heading > Content)
//	FieldBoundary  → half-open byte span of one field within a document
//	PostingEntry   → one term occurrence (doc, section, heading level, score)
//	SearchResult   → one ranked hit handed back to the embedder
//
// Everything here is immutable after index construction. The searcher shares
// the loaded structures across goroutines without locking because nothing
// ever writes to them again.
// ═══════════════════════════════════════════════════════════════════════════════

import "fmt"

// Document is the metadata record for a single indexed page or post.
//
// The id is dense: documents are numbered 0..N-1 in index order, and every
// posting refers to a document by this number. Category and Author are
// optional ("" when absent); Tags may be empty.
type Document struct {
	ID       uint32   `json:"id"`
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	Href     string   `json:"href"`
	Kind     string   `json:"type"` // document kind, e.g. "page" or "post"
	Category string   `json:"category,omitempty"`
	Author   string   `json:"author,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// FieldType classifies a span of document text by structural weight.
//
// The ordering is load-bearing: Title outranks Heading outranks Content, and
// the default build-time scores (100 / 10 / 1) preserve that hierarchy.
type FieldType uint8

const (
	FieldTitle FieldType = iota
	FieldHeading
	FieldContent
)

func (f FieldType) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldHeading:
		return "heading"
	case FieldContent:
		return "content"
	default:
		return fmt.Sprintf("field(%d)", uint8(f))
	}
}

// FieldBoundary marks a half-open byte span [Start, End) of one field within
// a document's text.
//
// SectionID names the in-page anchor for deep links ("" for the title span
// and for content that precedes any heading). HeadingLevel is 1..6 for
// heading spans and 0 otherwise. Invariant: Start < End.
type FieldBoundary struct {
	DocID        uint32
	Start        int
	End          int
	Field        FieldType
	SectionID    string
	HeadingLevel uint8
}

// ═══════════════════════════════════════════════════════════════════════════════
// MATCH TYPES: The Primary Ranking Key
// ═══════════════════════════════════════════════════════════════════════════════
// Results are bucketed by WHERE the query hit, not how often. A document
// whose title matches outranks a document with a thousand content matches.
//
// The bucket is derived from the heading level of the strongest posting:
//
//	level 1 (the document title, or an h1) → MatchTitle
//	level 2 (h2)                           → MatchSection
//	level 3 (h3)                           → MatchSubsection
//	level 4 (h4)                           → MatchSubsubsection
//	anything else (content, h5, h6)        → MatchContent
//
// Scores never cross buckets; see compareResults.
// ═══════════════════════════════════════════════════════════════════════════════

// MatchType is the structural bucket a result ranks in. Lower is better.
type MatchType uint8

const (
	MatchTitle MatchType = iota
	MatchSection
	MatchSubsection
	MatchSubsubsection
	MatchContent
)

// matchTypeFromHeadingLevel maps a posting's heading level to its ranking
// bucket.
func matchTypeFromHeadingLevel(level uint8) MatchType {
	switch level {
	case 1:
		return MatchTitle
	case 2:
		return MatchSection
	case 3:
		return MatchSubsection
	case 4:
		return MatchSubsubsection
	default:
		return MatchContent
	}
}

func (m MatchType) String() string {
	switch m {
	case MatchTitle:
		return "title"
	case MatchSection:
		return "section"
	case MatchSubsection:
		return "subsection"
	case MatchSubsubsection:
		return "subsubsection"
	case MatchContent:
		return "content"
	default:
		return fmt.Sprintf("match(%d)", uint8(m))
	}
}

// noMatchedTerm is the sentinel for "matched term ordinal unknown".
const noMatchedTerm = ^uint32(0)

// SearchResult is one ranked hit.
//
// SectionIdx is 0 for "the document itself" and otherwise a 1-based index
// into the section-id table, naming the anchor for deep linking. MatchedTerm
// is the vocabulary ordinal of the term that produced the strongest posting
// (noMatchedTerm when unknown), used by embedders to highlight the match.
type SearchResult struct {
	DocID       uint32
	Score       float64
	SectionIdx  uint32
	Tier        uint8 // 1=exact, 2=prefix, 3=fuzzy
	MatchType   MatchType
	MatchedTerm uint32 // vocabulary ordinal, or noMatchedTerm
}

// FuzzyMatch is a vocabulary term accepted by the Levenshtein matcher.
type FuzzyMatch struct {
	TermOrd  uint32
	Distance uint8
}
