package sift

// ═══════════════════════════════════════════════════════════════════════════════
// TIER SEARCHER: The Query Engine
// ═══════════════════════════════════════════════════════════════════════════════
// Every query runs up to three progressively broader strategies:
//
//	TIER 1 — EXACT:  hash lookup in the inverted index. "photo" matches the
//	                 vocabulary term "photo" and nothing else.
//	TIER 2 — PREFIX: suffix-array expansion. "photo" now also matches
//	                 "photography", "photogenic", ... with a length penalty
//	                 so six extra characters of term cost score.
//	TIER 3 — FUZZY:  Levenshtein sweep of the whole vocabulary. "phtoo"
//	                 matches "photo" at distance 2, with a distance penalty.
//
// Tiers are EXCLUSIVE in sequential mode: a document surfaced by tier 1 is
// skipped by tiers 2 and 3, so broader strategies only ever add documents
// the narrower ones missed.
//
// MULTI-TERM QUERIES use AND semantics per tier: "rust programming" only
// keeps documents where BOTH terms contributed a posting, with scores
// summed across terms and sections.
//
// THE SEARCHER IS VALIDATED ONCE at construction. Query paths never bounds
// check; validateLayer proved every reference already. All searcher state
// is immutable after construction, so one searcher may serve any number of
// concurrent Search calls.
// ═══════════════════════════════════════════════════════════════════════════════

import (
	"log/slog"

	"github.com/RoaringBitmap/roaring"
	"github.com/bits-and-blooms/bitset"
)

// tier1FastPathCeiling bounds the exact-tier early-exit limit, so a caller
// asking for a billion results cannot make tier 1 collect a billion.
const tier1FastPathCeiling = 10_000

// SearchOptions configures result handling.
type SearchOptions struct {
	// DedupSections collapses results to one per document (default true),
	// keeping the best section for deep linking and summing section scores
	// for ranking. The single-term exact fast path instead keeps each
	// document's highest-scoring posting and its score. When false, each
	// matching (document, section) pair surfaces as its own result.
	DedupSections bool
}

// DefaultSearchOptions returns the defaults: section dedup on.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{DedupSections: true}
}

// TierSearcher executes three-tier searches over one loaded layer.
//
// Construction validates the layer and freezes it; the zero value is not
// usable. Safe for concurrent use.
type TierSearcher struct {
	docs         []Document
	sectionTable []string
	vocabulary   []string
	suffixArray  []SuffixEntry
	postings     [][]PostingEntry
	skipLists    map[uint32]*SkipList
	levDFA       *ParametricDFA

	// termOrds maps each vocabulary term to its ordinal: the inverted
	// index. Postings are vocabulary-parallel, so the ordinal IS the
	// posting-list handle.
	termOrds map[string]uint32

	// fst is the transducer term dictionary backing Suggest and the hybrid
	// lookup path.
	fst *FstIndex
}

// NewTierSearcher wraps a loaded layer: validates every structural
// invariant, builds the inverted index and the FST, and freezes the result.
func NewTierSearcher(layer *LoadedLayer) (*TierSearcher, error) {
	if err := validateLayer(layer); err != nil {
		return nil, err
	}

	termOrds := make(map[string]uint32, len(layer.Vocabulary))
	for ord, term := range layer.Vocabulary {
		termOrds[term] = uint32(ord)
	}

	fst, err := BuildFstIndex(layer.Vocabulary)
	if err != nil {
		return nil, err
	}

	slog.Info("searcher ready",
		slog.Int("documents", len(layer.Docs)),
		slog.Int("terms", len(layer.Vocabulary)),
		slog.Int("suffixEntries", len(layer.SuffixArray)))

	return &TierSearcher{
		docs:         layer.Docs,
		sectionTable: layer.SectionTable,
		vocabulary:   layer.Vocabulary,
		suffixArray:  layer.SuffixArray,
		postings:     layer.Postings,
		skipLists:    layer.SkipLists,
		levDFA:       layer.LevDFA,
		termOrds:     termOrds,
		fst:          fst,
	}, nil
}

// Docs exposes the document metadata (for result resolution).
func (s *TierSearcher) Docs() []Document { return s.docs }

// SectionTable exposes the section-id strings.
func (s *TierSearcher) SectionTable() []string { return s.sectionTable }

// Vocabulary exposes the sorted term list.
func (s *TierSearcher) Vocabulary() []string { return s.vocabulary }

// SkipIndex returns the skip list for a term ordinal, or nil when the
// term's posting list is small enough to scan linearly. Embedders doing
// their own posting-level navigation (advance-to-document joins) hop
// through it instead of walking the list.
func (s *TierSearcher) SkipIndex(termOrd uint32) *SkipList {
	return s.skipLists[termOrd]
}

// ═══════════════════════════════════════════════════════════════════════════════
// MULTI-TERM ACCUMULATOR
// ═══════════════════════════════════════════════════════════════════════════════

// accumKey addresses one (document, section) score cell.
type accumKey struct {
	docID      uint32
	sectionIdx uint32
}

// accumCell is the running state for one (document, section) pair.
type accumCell struct {
	score       float64
	matchType   MatchType
	matchedTerm uint32
}

// multiTermAccumulator sums per-term evidence into per-(doc, section)
// scores and tracks which query terms hit each document, for AND filtering.
type multiTermAccumulator struct {
	cells    map[accumKey]*accumCell
	termHits map[uint32]*bitset.BitSet // docID → set of query-term indices
	numTerms int
}

func newMultiTermAccumulator(numTerms int) *multiTermAccumulator {
	return &multiTermAccumulator{
		cells:    make(map[accumKey]*accumCell),
		termHits: make(map[uint32]*bitset.BitSet),
		numTerms: numTerms,
	}
}

// addMatch folds one posting into the accumulator for query term termIdx.
//
// Scores SUM across terms and across postings; the match type keeps the
// best (lowest) seen, and the representative matched term follows the
// match-type improvement so highlighting points at the strongest evidence.
func (a *multiTermAccumulator) addMatch(termIdx int, docID, sectionIdx uint32, matchType MatchType, score float64, vocabOrd uint32) {
	key := accumKey{docID: docID, sectionIdx: sectionIdx}
	cell, ok := a.cells[key]
	if !ok {
		cell = &accumCell{matchType: matchType, matchedTerm: vocabOrd}
		a.cells[key] = cell
	} else if matchType < cell.matchType {
		cell.matchType = matchType
		cell.matchedTerm = vocabOrd
	}
	cell.score += score

	hits, ok := a.termHits[docID]
	if !ok {
		hits = bitset.New(uint(a.numTerms))
		a.termHits[docID] = hits
	}
	hits.Set(uint(termIdx))
}

// intoResults applies AND filtering, optional section dedup, ranking and
// truncation.
func (a *multiTermAccumulator) intoResults(tier uint8, limit int, docs []Document, dedupSections bool) []SearchResult {
	// First pass: keep (doc, section) cells whose document was hit by every
	// query term.
	sectionResults := make([]SearchResult, 0, len(a.cells))
	for key, cell := range a.cells {
		hits := a.termHits[key.docID]
		if hits == nil || int(hits.Count()) != a.numTerms {
			continue
		}
		sectionResults = append(sectionResults, SearchResult{
			DocID:       key.docID,
			Score:       cell.score,
			SectionIdx:  key.sectionIdx,
			Tier:        tier,
			MatchType:   cell.matchType,
			MatchedTerm: cell.matchedTerm,
		})
	}

	// Rank the section cells up front. The fold below then sees each
	// document's BEST section first, which both picks the deep-link anchor
	// and keeps the collapse deterministic (map iteration order never
	// leaks into results).
	sectionResults = sortResults(sectionResults, -1, docs)

	if !dedupSections {
		if limit >= 0 && len(sectionResults) > limit {
			sectionResults = sectionResults[:limit]
		}
		return sectionResults
	}

	// Collapse to one result per document. The ranking score is the SUM of
	// all section scores; the surviving section (the deep link anchor) is
	// the best one: lowest match type, then highest score.
	perDoc := make(map[uint32]int) // doc id → index into results
	results := make([]SearchResult, 0, len(sectionResults))
	for _, r := range sectionResults {
		if idx, ok := perDoc[r.DocID]; ok {
			results[idx].Score += r.Score
			continue
		}
		perDoc[r.DocID] = len(results)
		results = append(results, r)
	}
	for i := range results {
		results[i].Tier = tier
	}
	return sortResults(results, limit, docs)
}

// ═══════════════════════════════════════════════════════════════════════════════
// FULL SEARCH
// ═══════════════════════════════════════════════════════════════════════════════

// Search runs the full three-tier search with default options.
func (s *TierSearcher) Search(query string, limit int) []SearchResult {
	return s.SearchWithOptions(query, limit, DefaultSearchOptions())
}

// SearchWithOptions runs exact, then prefix (excluding tier 1 documents),
// then fuzzy (excluding tiers 1 and 2), merges, ranks, truncates.
//
// Deterministic: the same layer bytes, query and options always produce the
// same result list, ties included.
func (s *TierSearcher) SearchWithOptions(query string, limit int, options SearchOptions) []SearchResult {
	if query == "" || limit <= 0 {
		return nil
	}

	slog.Debug("search", slog.String("query", query), slog.Int("limit", limit))

	t1 := s.SearchTier1Exact(query, limit, options)
	exclude := roaring.New()
	for _, r := range t1 {
		exclude.Add(r.DocID)
	}

	t2 := s.SearchTier2Prefix(query, exclude, limit, options)
	for _, r := range t2 {
		exclude.Add(r.DocID)
	}

	t3 := s.SearchTier3Fuzzy(query, exclude, limit, options)

	results := make([]SearchResult, 0, len(t1)+len(t2)+len(t3))
	results = append(results, t1...)
	results = append(results, t2...)
	results = append(results, t3...)
	return sortResults(results, limit, s.docs)
}

// ═══════════════════════════════════════════════════════════════════════════════
// TIER 1: EXACT
// ═══════════════════════════════════════════════════════════════════════════════

// SearchTier1Exact runs the exact tier alone.
//
// Single-term queries with section dedup take the presorted fast path: the
// posting list's canonical order guarantees the first posting per document
// is its best, so the scan early-exits after `limit` distinct documents.
func (s *TierSearcher) SearchTier1Exact(query string, limit int, options SearchOptions) []SearchResult {
	terms := splitQueryTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return nil
	}

	if len(terms) == 1 && options.DedupSections {
		return s.tier1SingleTerm(terms[0], limit)
	}

	acc := newMultiTermAccumulator(len(terms))
	for termIdx, term := range terms {
		ord, ok := s.termOrds[term]
		if !ok {
			continue
		}
		for _, entry := range s.postings[ord] {
			acc.addMatch(termIdx, entry.DocID, entry.SectionIdx,
				matchTypeFromHeadingLevel(entry.HeadingLevel), float64(entry.Score), ord)
		}
	}
	return acc.intoResults(1, limit, s.docs, options.DedupSections)
}

// tier1SingleTerm is the presorted early-exit fast path.
func (s *TierSearcher) tier1SingleTerm(term string, limit int) []SearchResult {
	ord, ok := s.termOrds[term]
	if !ok {
		return nil
	}
	if limit > tier1FastPathCeiling {
		limit = tier1FastPathCeiling
	}

	results := make([]SearchResult, 0, min(limit, 16))
	seen := roaring.New()
	for _, entry := range s.postings[ord] {
		// Canonical order: the first posting per doc is its best.
		if !seen.CheckedAdd(entry.DocID) {
			continue
		}
		results = append(results, SearchResult{
			DocID:       entry.DocID,
			Score:       float64(entry.Score),
			SectionIdx:  entry.SectionIdx,
			Tier:        1,
			MatchType:   matchTypeFromHeadingLevel(entry.HeadingLevel),
			MatchedTerm: ord,
		})
		if len(results) >= limit {
			break
		}
	}

	// The list is score-presorted, so each document's match type comes from
	// its highest-scoring posting; the final comparator still runs to put
	// buckets first and apply the title/doc tiebreaks.
	return sortResults(results, limit, s.docs)
}

// ═══════════════════════════════════════════════════════════════════════════════
// TIER 2: PREFIX
// ═══════════════════════════════════════════════════════════════════════════════

// SearchTier2Prefix runs the prefix tier alone, skipping documents in
// exclude (tier 1's catch in sequential mode; empty for streaming).
//
// Each query term expands through the vocabulary suffix array to every term
// it prefixes. Postings score with a LENGTH PENALTY:
//
//	score × len(query term) / len(matched vocabulary term)
//
// so "photo" matching "photography" keeps 5/11 of the posting score. Exact
// hits (the term itself) pass through the expansion at full weight but are
// excluded per-document by the exclude set.
func (s *TierSearcher) SearchTier2Prefix(query string, exclude *roaring.Bitmap, limit int, options SearchOptions) []SearchResult {
	terms := splitQueryTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return nil
	}
	if exclude == nil {
		exclude = roaring.New()
	}

	acc := newMultiTermAccumulator(len(terms))
	for termIdx, term := range terms {
		// Terms already satisfied exactly still expand here: a prefix of a
		// LONGER vocabulary term is new evidence tier 1 could not see.
		for _, ord := range prefixSearchVocabulary(s.suffixArray, s.vocabulary, term) {
			matched := s.vocabulary[ord]
			penalty := float64(len(term)) / float64(max(len(matched), 1))
			for _, entry := range s.postings[ord] {
				if exclude.Contains(entry.DocID) {
					continue
				}
				acc.addMatch(termIdx, entry.DocID, entry.SectionIdx,
					matchTypeFromHeadingLevel(entry.HeadingLevel),
					float64(entry.Score)*penalty, ord)
			}
		}
	}
	return acc.intoResults(2, limit, s.docs, options.DedupSections)
}

// ═══════════════════════════════════════════════════════════════════════════════
// TIER 3: FUZZY
// ═══════════════════════════════════════════════════════════════════════════════

// SearchTier3Fuzzy runs the fuzzy tier alone, skipping documents in exclude
// (tiers 1 ∪ 2 in sequential mode).
//
// Each query term sweeps the whole vocabulary through the Levenshtein
// matcher; terms within distance 1..2 contribute postings with a DISTANCE
// PENALTY of 1/(1+d). Distance-0 matches are skipped outright: exact hits
// are tier 1's job, and re-scoring them here would double-count.
func (s *TierSearcher) SearchTier3Fuzzy(query string, exclude *roaring.Bitmap, limit int, options SearchOptions) []SearchResult {
	terms := splitQueryTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return nil
	}
	if exclude == nil {
		exclude = roaring.New()
	}

	acc := newMultiTermAccumulator(len(terms))
	for termIdx, term := range terms {
		for _, match := range fuzzySearchVocabulary(s.vocabulary, s.levDFA, term, maxEditDistance) {
			if match.Distance == 0 {
				continue
			}
			penalty := 1.0 / (1.0 + float64(match.Distance))
			for _, entry := range s.postings[match.TermOrd] {
				if exclude.Contains(entry.DocID) {
					continue
				}
				acc.addMatch(termIdx, entry.DocID, entry.SectionIdx,
					matchTypeFromHeadingLevel(entry.HeadingLevel),
					float64(entry.Score)*penalty, match.TermOrd)
			}
		}
	}
	return acc.intoResults(3, limit, s.docs, options.DedupSections)
}

// ═══════════════════════════════════════════════════════════════════════════════
// COMPLETIONS
// ═══════════════════════════════════════════════════════════════════════════════

// Suggest returns up to limit vocabulary terms completing the last query
// fragment, via the FST term dictionary. Embedders use this for the
// type-ahead dropdown; it does not touch posting lists.
func (s *TierSearcher) Suggest(fragment string, limit int) []string {
	terms := splitQueryTerms(fragment)
	if len(terms) == 0 {
		return nil
	}
	return s.fst.PrefixTerms(terms[len(terms)-1], limit)
}

// TermOrdinal resolves a term to its vocabulary ordinal through the
// inverted index.
func (s *TierSearcher) TermOrdinal(term string) (uint32, bool) {
	ord, ok := s.termOrds[term]
	return ord, ok
}

