package sift

// ═══════════════════════════════════════════════════════════════════════════════
// RESULT MERGER: One Result Per Document, Enforced by Types
// ═══════════════════════════════════════════════════════════════════════════════
// A document should appear at most once in search results. Sounds obvious,
// but it's easy to get wrong when results flow in from three tiers and
// multiple sections. The historical bug this guards against: keying the
// dedup map by (doc, section), which lets the same document surface once
// per matching section.
//
// ResultMerger's map key is the bare uint32 doc id and nothing else. There
// is no way to hand it a wider key; if you find yourself wanting one,
// you're about to reintroduce the bug.
//
// MERGE SEMANTICS:
// ----------------
// When the same document arrives twice, the better result wins, where
// "better" is exactly the final ranking order (match type, then score, then
// title, then doc id, then section index). Ties keep the incumbent, which
// makes replay deterministic.
//
// INVARIANT: after any merge sequence, stored doc ids are pairwise distinct
// and each stored entry is the maximum (under ranking order) of everything
// ever merged for that document.
// ═══════════════════════════════════════════════════════════════════════════════

// ResultMerger deduplicates search results by document id.
//
// Not safe for concurrent use; each search owns its merger.
type ResultMerger struct {
	results map[uint32]SearchResult
	docs    []Document // for the title tiebreak in ranking comparisons
}

// NewResultMerger returns an empty merger ranking against docs.
func NewResultMerger(docs []Document) *ResultMerger {
	return &ResultMerger{
		results: make(map[uint32]SearchResult),
		docs:    docs,
	}
}

// NewResultMergerWithCapacity pre-sizes the merger for roughly capacity
// unique documents.
func NewResultMergerWithCapacity(docs []Document, capacity int) *ResultMerger {
	return &ResultMerger{
		results: make(map[uint32]SearchResult, capacity),
		docs:    docs,
	}
}

// Merge inserts r, or replaces the stored result for r's document when r
// ranks strictly better.
func (m *ResultMerger) Merge(r SearchResult) {
	existing, ok := m.results[r.DocID]
	if !ok || compareResults(&r, &existing, m.docs) {
		m.results[r.DocID] = r
	}
}

// MergeAll merges every result in rs.
func (m *ResultMerger) MergeAll(rs []SearchResult) {
	for _, r := range rs {
		m.Merge(r)
	}
}

// Len reports the number of unique documents held.
func (m *ResultMerger) Len() int {
	return len(m.results)
}

// Contains reports whether a result for docID is held.
func (m *ResultMerger) Contains(docID uint32) bool {
	_, ok := m.results[docID]
	return ok
}

// DocIDs returns the held document ids in unspecified order.
func (m *ResultMerger) DocIDs() []uint32 {
	ids := make([]uint32, 0, len(m.results))
	for id := range m.results {
		ids = append(ids, id)
	}
	return ids
}

// GetSorted returns a ranked, truncated snapshot WITHOUT consuming the
// merger, so progressive callers can snapshot after every tier.
func (m *ResultMerger) GetSorted(limit int) []SearchResult {
	results := make([]SearchResult, 0, len(m.results))
	for _, r := range m.results {
		results = append(results, r)
	}
	return sortResults(results, limit, m.docs)
}

// IntoSorted returns the ranked, truncated results and leaves the merger
// empty. Use for the final snapshot.
func (m *ResultMerger) IntoSorted(limit int) []SearchResult {
	results := m.GetSorted(limit)
	m.results = make(map[uint32]SearchResult)
	return results
}
