package sift

// ═══════════════════════════════════════════════════════════════════════════════
// RESULT RESOLUTION: The Embedder Contract
// ═══════════════════════════════════════════════════════════════════════════════
// Internally a SearchResult is all numbers: doc id, section index, term
// ordinal. The host (the JS glue around the WASM module, or any other
// embedder) wants strings it can render. ResolvedResult is that view, and
// it is JSON-stable:
//
//	{
//	  "href": "/posts/2024/photography",
//	  "title": "Photography",
//	  "excerpt": "Cameras and lenses...",
//	  "sectionId": "getting-started",   // omitted when the match is the doc itself
//	  "tier": 1,
//	  "matchType": 0,                   // 0=title .. 4=content
//	  "score": 100,
//	  "matchedTerm": "photography"      // omitted when unknown
//	}
//
// Resolution is the ONLY place numeric handles turn into strings; the hot
// path never allocates them.
// ═══════════════════════════════════════════════════════════════════════════════

import "encoding/json"

// ResolvedResult is the host-facing, JSON-serializable form of one result.
type ResolvedResult struct {
	Href        string  `json:"href"`
	Title       string  `json:"title"`
	Excerpt     string  `json:"excerpt"`
	SectionID   string  `json:"sectionId,omitempty"`
	Tier        uint8   `json:"tier"`
	MatchType   uint8   `json:"matchType"`
	Score       float64 `json:"score"`
	MatchedTerm string  `json:"matchedTerm,omitempty"`
}

// Resolve turns an internal result into its host-facing form.
//
// Construction-time validation proved doc and section references in-range,
// so the lookups here cannot miss for results this searcher produced.
func (s *TierSearcher) Resolve(r SearchResult) ResolvedResult {
	doc := s.docs[r.DocID]
	resolved := ResolvedResult{
		Href:      doc.Href,
		Title:     doc.Title,
		Excerpt:   doc.Excerpt,
		Tier:      r.Tier,
		MatchType: uint8(r.MatchType),
		Score:     r.Score,
	}
	if r.SectionIdx > 0 && int(r.SectionIdx) <= len(s.sectionTable) {
		resolved.SectionID = s.sectionTable[r.SectionIdx-1]
	}
	if r.MatchedTerm != noMatchedTerm && int(r.MatchedTerm) < len(s.vocabulary) {
		resolved.MatchedTerm = s.vocabulary[r.MatchedTerm]
	}
	return resolved
}

// ResolveAll resolves a result list in order.
func (s *TierSearcher) ResolveAll(results []SearchResult) []ResolvedResult {
	resolved := make([]ResolvedResult, len(results))
	for i, r := range results {
		resolved[i] = s.Resolve(r)
	}
	return resolved
}

// ResultsJSON renders resolved results as the JSON array the host consumes.
func (s *TierSearcher) ResultsJSON(results []SearchResult) ([]byte, error) {
	return json.Marshal(s.ResolveAll(results))
}
