package sift

// ═══════════════════════════════════════════════════════════════════════════════
// INDEX BUILDER
// ═══════════════════════════════════════════════════════════════════════════════
// Offline construction: documents go in, one immutable .sorex artifact
// comes out. The builder keeps the hybrid storage shape while indexing:
//
//	IndexBuilder
//	├── docBitmaps:  map[term]*roaring.Bitmap   (DOCUMENT-LEVEL)
//	│     "photo" → bitmap of doc ids {0, 3, 17}
//	├── occurrences: map[term]map[slot]count    (POSTING-LEVEL)
//	│     "photo" → {doc 0/title: 1, doc 3/§install: 2}
//	└── mu: mutex so ingest goroutines can feed it concurrently
//
// Bitmaps answer "which documents mention this term" instantly during
// build-time statistics; the occurrence map carries the detail that becomes
// posting entries.
//
// SCORING happens here, not at query time. Every (term, doc, section)
// occurrence gets a u32 score from the score function:
//
//	default: fieldBase × occurrences, where fieldBase is
//	         Title=100, Heading=10, Content=1
//
// A custom ScoreFunc (evaluated once per posting, at build time) can
// replace the default; the query engine only ever reads the precomputed
// numbers, so ranking experiments never touch the hot path.
// ═══════════════════════════════════════════════════════════════════════════════

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// Default per-field base scores.
const (
	scoreBaseTitle   = 100
	scoreBaseHeading = 10
	scoreBaseContent = 1
)

// ScoreFunc computes the score of one posting at build time.
//
// occurrences is how many times the term appeared within the (document,
// section, field) slot. The returned score is stored verbatim.
type ScoreFunc func(doc Document, field FieldType, headingLevel uint8, occurrences int) uint32

// defaultScore is the standard field-weighted scorer.
func defaultScore(_ Document, field FieldType, _ uint8, occurrences int) uint32 {
	base := uint32(scoreBaseContent)
	switch field {
	case FieldTitle:
		base = scoreBaseTitle
	case FieldHeading:
		base = scoreBaseHeading
	}
	return base * uint32(occurrences)
}

// BuilderConfig configures an index build.
type BuilderConfig struct {
	Analyzer AnalyzerConfig
	Score    ScoreFunc // nil = defaultScore
	// WasmBytes is an optional runtime module to embed. Empty is fine; the
	// section length is reserved either way.
	WasmBytes []byte
}

// DefaultBuilderConfig returns the standard build settings.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{Analyzer: DefaultAnalyzerConfig()}
}

// postingSlot identifies one (document, section, heading level, field)
// occurrence bucket for a term.
type postingSlot struct {
	docID        uint32
	sectionIdx   uint32
	headingLevel uint8
	field        FieldType
}

// IndexBuilder accumulates documents and produces the serialized index.
type IndexBuilder struct {
	mu     sync.Mutex
	config BuilderConfig

	docs        []Document
	docBitmaps  map[string]*roaring.Bitmap
	occurrences map[string]map[postingSlot]int

	sectionIDs  []string
	sectionOrds map[string]uint32
}

// NewIndexBuilder returns an empty builder with default configuration.
func NewIndexBuilder() *IndexBuilder {
	return NewIndexBuilderWithConfig(DefaultBuilderConfig())
}

// NewIndexBuilderWithConfig returns an empty builder.
func NewIndexBuilderWithConfig(config BuilderConfig) *IndexBuilder {
	if config.Score == nil {
		config.Score = defaultScore
	}
	return &IndexBuilder{
		config:      config,
		docBitmaps:  make(map[string]*roaring.Bitmap),
		occurrences: make(map[string]map[postingSlot]int),
		sectionOrds: make(map[string]uint32),
	}
}

// AddDocument ingests one document: its metadata, its text, and the field
// boundaries describing the text's structure. Returns the assigned dense
// document id.
//
// When boundaries is nil, a default structure is assumed: the document
// title indexes as the title field and the whole text as content. This is
// the common case for corpora without heading extraction.
//
// Safe for concurrent use; document ids are assigned in call order.
func (b *IndexBuilder) AddDocument(doc Document, text string, boundaries []FieldBoundary) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	docID := uint32(len(b.docs))
	doc.ID = docID
	b.docs = append(b.docs, doc)

	slog.Info("indexing document", slog.Int("docID", int(docID)), slog.String("href", doc.Href))

	if boundaries == nil {
		b.indexSpan(docID, doc, doc.Title, FieldTitle, "", 0)
		b.indexSpan(docID, doc, text, FieldContent, "", 0)
		return docID, nil
	}

	// Index the title from metadata even with explicit boundaries, unless
	// the caller supplied a title span of their own.
	hasTitle := false
	for _, fb := range boundaries {
		if fb.Field == FieldTitle {
			hasTitle = true
			break
		}
	}
	if !hasTitle {
		b.indexSpan(docID, doc, doc.Title, FieldTitle, "", 0)
	}

	for _, fb := range boundaries {
		if fb.Start >= fb.End || fb.Start < 0 || fb.End > len(text) {
			return 0, fmt.Errorf("document %d: invalid field boundary [%d, %d) over %d bytes",
				docID, fb.Start, fb.End, len(text))
		}
		b.indexSpan(docID, doc, text[fb.Start:fb.End], fb.Field, fb.SectionID, fb.HeadingLevel)
	}
	return docID, nil
}

// indexSpan tokenizes one field span and records its occurrences.
//
// Heading levels in postings: title = 1, heading = its own level (an h1
// also lands on 1), content = 0. The section index is the interned section
// id, or 0 for "the document itself".
func (b *IndexBuilder) indexSpan(docID uint32, doc Document, text string, field FieldType, sectionID string, headingLevel uint8) {
	tokens := AnalyzeWithConfig(text, b.config.Analyzer)
	if len(tokens) == 0 {
		return
	}

	level := uint8(0)
	switch field {
	case FieldTitle:
		level = 1
	case FieldHeading:
		level = headingLevel
		if level == 0 {
			level = 2 // a heading with no declared level reads as an h2
		}
	}

	sectionIdx := uint32(0)
	if sectionID != "" {
		sectionIdx = b.internSection(sectionID)
	}

	slot := postingSlot{docID: docID, sectionIdx: sectionIdx, headingLevel: level, field: field}
	for _, token := range tokens {
		bitmap := b.docBitmaps[token]
		if bitmap == nil {
			bitmap = roaring.NewBitmap()
			b.docBitmaps[token] = bitmap
		}
		bitmap.Add(docID)

		slots := b.occurrences[token]
		if slots == nil {
			slots = make(map[postingSlot]int)
			b.occurrences[token] = slots
		}
		slots[slot]++
	}
}

// internSection assigns (or returns) the 1-based table index of a section
// id.
func (b *IndexBuilder) internSection(id string) uint32 {
	if ord, ok := b.sectionOrds[id]; ok {
		return ord
	}
	b.sectionIDs = append(b.sectionIDs, id)
	ord := uint32(len(b.sectionIDs)) // 1-based; 0 means "no section"
	b.sectionOrds[id] = ord
	return ord
}

// DocFrequency reports how many documents contain term, straight off the
// roaring bitmap.
func (b *IndexBuilder) DocFrequency(term string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	bitmap := b.docBitmaps[term]
	if bitmap == nil {
		return 0
	}
	return int(bitmap.GetCardinality())
}

// BuildLayer assembles the in-memory index without serializing.
//
// Searches against this layer and against a decode of Build's bytes give
// identical results; round-trip tests lean on that equivalence. (The
// serialized form may additionally carry skip lists and header lengths the
// in-memory layer leaves empty.)
func (b *IndexBuilder) BuildLayer() (*LoadedLayer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Vocabulary: sorted distinct terms; ordinals are positions.
	vocabulary := make([]string, 0, len(b.occurrences))
	for term := range b.occurrences {
		vocabulary = append(vocabulary, term)
	}
	sort.Strings(vocabulary)

	// Postings: score each occupied slot, then merge slots that share a
	// (doc, section) pair. A term hitting both the title and the body of
	// one document yields ONE posting: scores sum, and the heading level of
	// the strongest field wins so the match-type bucket reflects the best
	// evidence.
	postings := make([][]PostingEntry, len(vocabulary))
	for ord, term := range vocabulary {
		slots := b.occurrences[term]
		type pairKey struct {
			docID      uint32
			sectionIdx uint32
		}
		merged := make(map[pairKey]PostingEntry, len(slots))
		for slot, count := range slots {
			score := b.config.Score(b.docs[slot.docID], slot.field, slot.headingLevel, count)
			key := pairKey{docID: slot.docID, sectionIdx: slot.sectionIdx}
			entry, ok := merged[key]
			if !ok {
				merged[key] = PostingEntry{
					DocID:        slot.docID,
					SectionIdx:   slot.sectionIdx,
					HeadingLevel: slot.headingLevel,
					Score:        score,
				}
				continue
			}
			entry.Score += score
			if matchTypeFromHeadingLevel(slot.headingLevel) < matchTypeFromHeadingLevel(entry.HeadingLevel) {
				entry.HeadingLevel = slot.headingLevel
			}
			merged[key] = entry
		}
		entries := make([]PostingEntry, 0, len(merged))
		for _, entry := range merged {
			entries = append(entries, entry)
		}
		canonicalizePostings(entries)
		postings[ord] = entries
	}

	// Dictionary tables: interned in deterministic (document) order.
	tables := NewDictTables()
	for _, doc := range b.docs {
		if doc.Category != "" {
			tables.Category.Intern(doc.Category)
		}
		if doc.Author != "" {
			tables.Author.Intern(doc.Author)
		}
		for _, tag := range doc.Tags {
			tables.Tags.Intern(tag)
		}
		if prefix, _, ok := extractHrefPrefix(doc.Href); ok {
			tables.HrefPrefix.Intern(prefix)
		}
	}

	layer := &LoadedLayer{
		Vocabulary:   vocabulary,
		SuffixArray:  buildVocabSuffixArray(vocabulary),
		Postings:     postings,
		SkipLists:    map[uint32]*SkipList{},
		SectionTable: append([]string(nil), b.sectionIDs...),
		LevDFA:       BuildParametricDFA(true),
		Docs:         append([]Document(nil), b.docs...),
		WasmBytes:    b.config.WasmBytes,
		DictTables:   tables,
	}
	layer.Header = Header{
		Version:       formatVersion,
		DocumentCount: uint32(len(layer.Docs)),
		TermCount:     uint32(len(vocabulary)),
	}

	slog.Info("index built",
		slog.Int("documents", len(layer.Docs)),
		slog.Int("terms", len(vocabulary)),
		slog.Int("sections", len(layer.SectionTable)))

	return layer, nil
}

// Build assembles and serializes the index to its binary form.
func (b *IndexBuilder) Build() ([]byte, error) {
	layer, err := b.BuildLayer()
	if err != nil {
		return nil, err
	}

	enc := layerEncoder{
		Vocabulary:   layer.Vocabulary,
		SuffixArray:  layer.SuffixArray,
		Postings:     layer.Postings,
		SectionTable: layer.SectionTable,
		LevDFA:       layer.LevDFA,
		Docs:         layer.Docs,
		WasmBytes:    layer.WasmBytes,
		DictTables:   layer.DictTables,
	}
	return enc.Encode(), nil
}
