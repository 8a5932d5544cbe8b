package sift

// ═══════════════════════════════════════════════════════════════════════════════
// FST TERM DICTIONARY
// ═══════════════════════════════════════════════════════════════════════════════
// A finite state transducer over the sorted vocabulary, mapping each term to
// its ordinal. The FST shares prefixes AND suffixes structurally, so the
// whole term dictionary compresses to a few bytes per term while supporting:
//
//	Lookup(term)          → exact ordinal, O(len(term))
//	PrefixOrdinals(p)     → every ordinal whose term starts with p
//	HybridLookup(term)    → exact first, prefix expansion as the fallback
//
// The suffix array (suffix.go) answers the same prefix question; the FST
// answers it from a byte-range iteration instead of a binary search plus
// scan, and additionally powers the completion surface (TierSearcher's
// Suggest). It is rebuilt at load time from the vocabulary rather than
// serialized: construction is linear and the vocabulary section already
// ships the keys.
// ═══════════════════════════════════════════════════════════════════════════════

import (
	"bytes"
	"errors"

	"github.com/blevesearch/vellum"
)

// FstIndex is the transducer plus the vocabulary it indexes.
type FstIndex struct {
	fst        *vellum.FST
	vocabulary []string
}

// BuildFstIndex constructs the FST from a sorted, deduplicated vocabulary.
func BuildFstIndex(vocabulary []string) (*FstIndex, error) {
	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, err
	}
	for ord, term := range vocabulary {
		if term == "" {
			continue // vellum rejects empty keys; an empty term is unsearchable anyway
		}
		if err := builder.Insert([]byte(term), uint64(ord)); err != nil {
			return nil, err
		}
	}
	if err := builder.Close(); err != nil {
		return nil, err
	}

	fst, err := vellum.Load(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return &FstIndex{fst: fst, vocabulary: vocabulary}, nil
}

// Lookup returns the ordinal for an exact vocabulary term.
func (f *FstIndex) Lookup(term string) (uint32, bool) {
	val, exists, err := f.fst.Get([]byte(term))
	if err != nil || !exists {
		return 0, false
	}
	return uint32(val), true
}

// PrefixOrdinals returns the ordinals of every term beginning with prefix,
// ascending (FST iteration is key order, and the vocabulary is sorted, so
// ordinals come out ascending for free).
func (f *FstIndex) PrefixOrdinals(prefix string) []uint32 {
	if prefix == "" {
		return nil
	}
	start := []byte(prefix)
	end := prefixUpperBound(start)

	itr, err := f.fst.Iterator(start, end)
	var ordinals []uint32
	for err == nil {
		_, val := itr.Current()
		ordinals = append(ordinals, uint32(val))
		err = itr.Next()
	}
	if err != nil && !errors.Is(err, vellum.ErrIteratorDone) {
		return ordinals
	}
	return ordinals
}

// HybridLookup resolves a query term the way the two-phase lookup does:
// exact match wins outright; otherwise every prefix expansion is returned.
//
// The boolean reports whether the match was exact.
func (f *FstIndex) HybridLookup(term string) ([]uint32, bool) {
	if ord, ok := f.Lookup(term); ok {
		return []uint32{ord}, true
	}
	return f.PrefixOrdinals(term), false
}

// PrefixTerms returns up to limit vocabulary terms beginning with prefix,
// in lexicographic order. This is the completion primitive behind Suggest.
func (f *FstIndex) PrefixTerms(prefix string, limit int) []string {
	ordinals := f.PrefixOrdinals(prefix)
	if limit >= 0 && len(ordinals) > limit {
		ordinals = ordinals[:limit]
	}
	terms := make([]string, 0, len(ordinals))
	for _, ord := range ordinals {
		if int(ord) < len(f.vocabulary) {
			terms = append(terms, f.vocabulary[ord])
		}
	}
	return terms
}

// prefixUpperBound computes the smallest byte string greater than every
// string with the given prefix, for use as an exclusive range end. Returns
// nil (no upper bound) when the prefix is all 0xFF bytes.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
