// Package sift implements a full-text search engine for static websites.
//
// An index is built offline from a corpus of documents, serialized into a
// single self-describing binary artifact, and shipped to the browser where
// the query engine answers interactive search-as-you-type queries.
//
// ═══════════════════════════════════════════════════════════════════════════════
// THE THREE-TIER SEARCH
// ═══════════════════════════════════════════════════════════════════════════════
// Every query runs up to three progressively broader strategies:
//
//	Tier 1 — EXACT:  hash lookup of the whole term in the inverted index
//	Tier 2 — PREFIX: vocabulary suffix-array expansion, length-penalized
//	Tier 3 — FUZZY:  Levenshtein sweep (edit distance ≤ 2), distance-penalized
//
// Results are bucketed by WHERE the query hit (title beats heading beats
// content) before any numeric score is consulted, deduplicated to one
// result per document, and delivered either as one sorted list, as
// progressive per-tier snapshots, or as an ordered stream from parallel
// tier workers.
//
// ═══════════════════════════════════════════════════════════════════════════════
// TYPICAL USE
// ═══════════════════════════════════════════════════════════════════════════════
// Build time:
//
//	builder := sift.NewIndexBuilder()
//	builder.AddDocument(doc, text, boundaries)
//	artifact, _ := builder.Build()            // one .sorex file
//
// Query time:
//
//	layer, _ := sift.LoadedLayerFromBytes(artifact)
//	searcher, _ := sift.NewTierSearcher(layer)
//	results := searcher.Search("photography", 10)
//
// The loaded layer is immutable; one searcher serves any number of
// concurrent queries.
package sift
