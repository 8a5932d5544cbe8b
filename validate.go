package sift

// ═══════════════════════════════════════════════════════════════════════════════
// CONSTRUCTION-TIME VALIDATION
// ═══════════════════════════════════════════════════════════════════════════════
// The query hot paths index into vocabulary, postings, docs and the section
// table without re-checking bounds. That is only sound because this walk
// runs ONCE, at searcher construction, and proves every reference in the
// loaded layer:
//
//	- posting doc ids       < document count
//	- posting section idx   ≤ section table length (0 = no section)
//	- posting lists         parallel to the vocabulary, canonically ordered,
//	                        unique doc ids per (doc, section) stream
//	- suffix entries        in-bounds term ordinal, offset on a character
//	                        boundary at or before the term end
//	- suffix array          sorted by referenced suffix, byte-lex
//
// A failure here is fatal to construction; nothing of the layer is used.
// ═══════════════════════════════════════════════════════════════════════════════

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// validateLayer walks every suffix entry and posting once. Returns nil when
// the layer upholds all structural invariants.
func validateLayer(layer *LoadedLayer) error {
	if len(layer.Postings) != len(layer.Vocabulary) {
		return fmt.Errorf("%w: %d lists for %d terms",
			ErrPostingListLengthMismatch, len(layer.Postings), len(layer.Vocabulary))
	}

	docCount := uint32(len(layer.Docs))
	sectionTableLen := uint32(len(layer.SectionTable))

	// Postings: bounds, canonical order, per-list (doc, section) uniqueness.
	// The uniqueness bitset is keyed doc × section slot; one bit per pair
	// keeps the sweep allocation-free across lists.
	slots := uint(docCount) * uint(sectionTableLen+1)
	seenPairs := bitset.New(slots)
	for termOrd, list := range layer.Postings {
		seenPairs.ClearAll()
		var prev PostingEntry
		for i, entry := range list {
			if entry.DocID >= docCount {
				return fmt.Errorf("%w: term %d posting %d references doc %d of %d",
					ErrDocIDOutOfRange, termOrd, i, entry.DocID, docCount)
			}
			if entry.SectionIdx > sectionTableLen {
				return fmt.Errorf("%w: term %d posting %d references section %d of %d",
					ErrSectionIdxOutOfRange, termOrd, i, entry.SectionIdx, sectionTableLen)
			}
			if i > 0 {
				// Canonical order: score desc, then doc asc within a score.
				if entry.Score > prev.Score ||
					(entry.Score == prev.Score && entry.DocID < prev.DocID) {
					return fmt.Errorf("%w: term %d posting %d", ErrPostingOrder, termOrd, i)
				}
			}
			// A repeated (doc, section) pair in one list would double-count
			// that section's score.
			slot := uint(entry.DocID)*uint(sectionTableLen+1) + uint(entry.SectionIdx)
			if seenPairs.Test(slot) {
				return fmt.Errorf("%w: term %d duplicate posting for doc %d section %d",
					ErrPostingOrder, termOrd, entry.DocID, entry.SectionIdx)
			}
			seenPairs.Set(slot)
			prev = entry
		}
	}

	// Suffix array: bounds, boundaries, sortedness.
	var prevSuffix string
	for i, entry := range layer.SuffixArray {
		if int(entry.TermOrd) >= len(layer.Vocabulary) {
			return fmt.Errorf("%w: entry %d term ordinal %d of %d",
				ErrSuffixOutOfBounds, i, entry.TermOrd, len(layer.Vocabulary))
		}
		term := layer.Vocabulary[entry.TermOrd]
		off := int(entry.CharOffset)
		if off > len(term) {
			return fmt.Errorf("%w: entry %d offset %d past term of %d bytes",
				ErrSuffixOutOfBounds, i, off, len(term))
		}
		if off < len(term) && !isUTF8Start(term[off]) {
			return fmt.Errorf("%w: entry %d offset %d in term %q",
				ErrSuffixNotOnCharBoundary, i, off, term)
		}
		suffix := term[off:]
		if i > 0 && suffix < prevSuffix {
			return fmt.Errorf("%w: entry %d suffix %q sorts before %q",
				ErrSuffixOutOfBounds, i, suffix, prevSuffix)
		}
		prevSuffix = suffix
	}

	return nil
}
