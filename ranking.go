package sift

// ═══════════════════════════════════════════════════════════════════════════════
// RANKING: Bucketed Result Ordering
// ═══════════════════════════════════════════════════════════════════════════════
// Results sort by a five-part lexicographic key:
//
//	1. MatchType   (Title < Section < Subsection < Subsubsection < Content)
//	2. Score       (descending within a bucket)
//	3. Title       (byte-lexicographic ascending, for determinism)
//	4. DocID       (ascending)
//	5. SectionIdx  (ascending; orders sections of one document when section
//	               dedup is off)
//
// THE BUCKET RULE:
// ----------------
// A title match with score 1 outranks a content match with score 1,000,000.
// Numeric scores are tiebreakers WITHIN a bucket, never a way to escape one.
// This is what makes search-as-you-type feel right: typing "photo" surfaces
// the page titled "Photography" above the travelogue that merely mentions
// photography nineteen times.
// ═══════════════════════════════════════════════════════════════════════════════

import "sort"

// compareResults reports whether a ranks strictly before b.
//
// The docs slice supplies titles for the determinism tiebreak; an out-of-range
// doc id compares as the empty title (validation rejects such postings before
// any query runs, so this is belt only).
func compareResults(a, b *SearchResult, docs []Document) bool {
	if a.MatchType != b.MatchType {
		return a.MatchType < b.MatchType
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	aTitle, bTitle := "", ""
	if int(a.DocID) < len(docs) {
		aTitle = docs[a.DocID].Title
	}
	if int(b.DocID) < len(docs) {
		bTitle = docs[b.DocID].Title
	}
	if aTitle != bTitle {
		return aTitle < bTitle
	}
	if a.DocID != b.DocID {
		return a.DocID < b.DocID
	}
	// Distinct sections of one document (dedup off) still need a stable
	// order.
	return a.SectionIdx < b.SectionIdx
}

// sortResults orders results by the ranking key and truncates to limit.
func sortResults(results []SearchResult, limit int, docs []Document) []SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return compareResults(&results[i], &results[j], docs)
	})
	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
