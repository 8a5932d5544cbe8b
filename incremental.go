package sift

// ═══════════════════════════════════════════════════════════════════════════════
// INCREMENTAL LOADER: Sections in Any Order
// ═══════════════════════════════════════════════════════════════════════════════
// A browser streaming a multi-megabyte index does not want to wait for the
// last byte before starting to decode the first. Once the 52-byte header is
// known, every section is an independent byte range, so the embedder can:
//
//	1. LoadHeader(first bytes)      → learn the section offsets
//	2. LoadVocabulary(bytes), LoadPostings(bytes), ... in ANY order,
//	   from any goroutine, as ranges arrive
//	3. Finalize()                   → assembled LoadedLayer
//
// Completion is tracked with an atomic counter: every section loader does
// its decode, stores the result, and decrements the pending count. Finalize
// waits for the count to reach zero and fails with MissingSectionError
// naming the first absent section if the caller never delivered one.
//
// LoadAll is the convenience entry that decodes all nine sections in
// parallel under an errgroup, which is also what from-bytes callers get
// when they want the multicore decode.
// ═══════════════════════════════════════════════════════════════════════════════

import (
	"hash/crc32"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// IncrementalLoader assembles a LoadedLayer from independently delivered
// section byte ranges.
//
// All methods are safe for concurrent use. Section loaders may be called at
// most once each. A second call for the same section does not count toward
// completion again and does not replace the first call's decode error, but
// its decoded data does replace the data the first call stored.
type IncrementalLoader struct {
	mu     sync.Mutex
	header *Header

	pending atomic.Int32 // sections not yet decoded
	done    chan struct{}

	loaded [sectionCount]bool
	errs   [sectionCount]error

	vocabulary   []string
	suffixArray  []SuffixEntry
	postings     [][]PostingEntry
	skipLists    map[uint32]*SkipList
	sectionTable []string
	levDFA       *ParametricDFA
	docsRaw      []byte
	wasmBytes    []byte
	dictTables   *DictTables
}

// NewIncrementalLoader returns a loader awaiting its header.
func NewIncrementalLoader() *IncrementalLoader {
	l := &IncrementalLoader{done: make(chan struct{})}
	l.pending.Store(sectionCount)
	return l
}

// SectionRange names one section's byte range within the file.
type SectionRange struct {
	Name   string
	Offset int
	Length int
}

// LoadHeader parses the fixed header and returns the byte ranges of all
// nine sections so the caller can schedule fetches.
//
// Must be called before any section loader; the docs section additionally
// requires the dict tables to be loaded first (the loader enforces the
// ordering internally by deferring resolution to Finalize).
func (l *IncrementalLoader) LoadHeader(data []byte) ([]SectionRange, error) {
	header, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.header = header
	l.mu.Unlock()

	names := sectionNames()
	lengths := header.sectionLengths()
	ranges := make([]SectionRange, sectionCount)
	offset := headerSize
	for i := range ranges {
		ranges[i] = SectionRange{Name: names[i], Offset: offset, Length: int(lengths[i])}
		offset += int(lengths[i])
	}
	return ranges, nil
}

// Header returns the parsed header, or nil before LoadHeader.
func (l *IncrementalLoader) Header() *Header {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.header
}

// complete marks section idx decoded (with err if the decode failed) and
// releases Finalize when it was the last one.
func (l *IncrementalLoader) complete(idx int, err error) {
	l.mu.Lock()
	if l.loaded[idx] {
		l.mu.Unlock()
		return
	}
	l.loaded[idx] = true
	l.errs[idx] = err
	l.mu.Unlock()

	if l.pending.Add(-1) == 0 {
		close(l.done)
	}
}

// LoadVocabulary decodes the vocabulary section.
func (l *IncrementalLoader) LoadVocabulary(data []byte) {
	termCount := 0
	if h := l.Header(); h != nil {
		termCount = int(h.TermCount)
	}
	vocab, err := decodeVocabularySection(data, termCount)
	l.mu.Lock()
	l.vocabulary = vocab
	l.mu.Unlock()
	l.complete(0, err)
}

// LoadSuffixArray decodes the suffix array section.
func (l *IncrementalLoader) LoadSuffixArray(data []byte) {
	sa, err := decodeSuffixArraySection(data)
	l.mu.Lock()
	l.suffixArray = sa
	l.mu.Unlock()
	l.complete(1, err)
}

// LoadPostings decodes the postings section.
func (l *IncrementalLoader) LoadPostings(data []byte) {
	termCount := 0
	if h := l.Header(); h != nil {
		termCount = int(h.TermCount)
	}
	postings, err := decodePostingsSection(data, termCount)
	l.mu.Lock()
	l.postings = postings
	l.mu.Unlock()
	l.complete(2, err)
}

// LoadSkipLists decodes the skip-list section. Indexes without the
// skip-list flag pass the (empty) section bytes through here all the same.
func (l *IncrementalLoader) LoadSkipLists(data []byte) {
	var lists map[uint32]*SkipList
	var err error
	h := l.Header()
	if h != nil && h.Flags&flagSkipLists != 0 {
		lists, err = decodeSkipListSection(data)
	} else {
		lists = map[uint32]*SkipList{}
	}
	l.mu.Lock()
	l.skipLists = lists
	l.mu.Unlock()
	l.complete(3, err)
}

// LoadSectionTable decodes the section-id table.
func (l *IncrementalLoader) LoadSectionTable(data []byte) {
	table, err := decodeSectionTable(data)
	l.mu.Lock()
	l.sectionTable = table
	l.mu.Unlock()
	l.complete(4, err)
}

// LoadLevDFA decodes the Levenshtein automaton (empty section = no DFA).
func (l *IncrementalLoader) LoadLevDFA(data []byte) {
	var dfa *ParametricDFA
	var err error
	if len(data) > 0 {
		dfa, err = decodeParametricDFA(data)
	}
	l.mu.Lock()
	l.levDFA = dfa
	l.mu.Unlock()
	l.complete(5, err)
}

// LoadDocs stores the docs section bytes for decoding at Finalize.
//
// Docs reference the dictionary tables, which may not have arrived yet;
// deferring the decode keeps section delivery genuinely order-free.
func (l *IncrementalLoader) LoadDocs(data []byte) {
	l.mu.Lock()
	l.docsRaw = append([]byte(nil), data...)
	l.mu.Unlock()
	l.complete(6, nil)
}

// LoadWasm stores the embedded runtime bytes opaquely.
func (l *IncrementalLoader) LoadWasm(data []byte) {
	l.mu.Lock()
	l.wasmBytes = append([]byte(nil), data...)
	l.mu.Unlock()
	l.complete(7, nil)
}

// LoadDictTables decodes the dictionary tables.
func (l *IncrementalLoader) LoadDictTables(data []byte) {
	tables, err := decodeDictTables(data)
	l.mu.Lock()
	l.dictTables = tables
	l.mu.Unlock()
	l.complete(8, err)
}

// Finalize blocks until every section has been delivered and decoded, then
// assembles the LoadedLayer.
//
// Returns MissingSectionError when called after Abandon, and the first
// section decode error otherwise. The docs section is resolved here, once
// the dictionary tables are guaranteed present.
func (l *IncrementalLoader) Finalize() (*LoadedLayer, error) {
	<-l.done

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.header == nil {
		return nil, &MissingSectionError{Name: "header"}
	}
	names := sectionNames()
	for i, ok := range l.loaded {
		if !ok {
			return nil, &MissingSectionError{Name: names[i]}
		}
		if l.errs[i] != nil {
			return nil, l.errs[i]
		}
	}

	docs, err := decodeDocsSection(l.docsRaw, l.dictTables)
	if err != nil {
		return nil, err
	}

	return &LoadedLayer{
		Header:       *l.header,
		Vocabulary:   l.vocabulary,
		SuffixArray:  l.suffixArray,
		Postings:     l.postings,
		SkipLists:    l.skipLists,
		SectionTable: l.sectionTable,
		LevDFA:       l.levDFA,
		Docs:         docs,
		WasmBytes:    l.wasmBytes,
		DictTables:   l.dictTables,
	}, nil
}

// Pending reports how many sections have not yet been delivered.
func (l *IncrementalLoader) Pending() int {
	return int(l.pending.Load())
}

// Abandon releases a Finalize that would otherwise wait forever. Sections
// never delivered surface as MissingSectionError.
func (l *IncrementalLoader) Abandon() {
	for l.pending.Load() > 0 {
		if l.pending.Add(-1) == 0 {
			close(l.done)
		}
	}
}

// LoadAll feeds all nine sections to the loader concurrently and finalizes.
//
// This is the parallel decode path: the CRC is verified up front, then each
// section decodes on its own goroutine under an errgroup.
func LoadAll(data []byte) (*LoadedLayer, error) {
	loader := NewIncrementalLoader()
	ranges, err := loader.LoadHeader(data)
	if err != nil {
		return nil, err
	}

	// Verify footer CRC before spending decode work on corrupt bytes.
	bodyLen := loader.Header().bodyLen()
	if len(data) < bodyLen+footerSize {
		return nil, &TruncatedSectionError{Name: "footer", Need: bodyLen + footerSize, Have: len(data)}
	}
	if [4]byte(data[bodyLen+4 : bodyLen+footerSize]) != magicFooter {
		return nil, ErrInvalidFooter
	}
	stored := uint32(data[bodyLen]) | uint32(data[bodyLen+1])<<8 |
		uint32(data[bodyLen+2])<<16 | uint32(data[bodyLen+3])<<24
	if computed := crc32.ChecksumIEEE(data[:bodyLen]); stored != computed {
		return nil, &BadCrcError{Stored: stored, Computed: computed}
	}

	slice := func(i int) ([]byte, error) {
		r := ranges[i]
		if r.Offset+r.Length > len(data) {
			return nil, &TruncatedSectionError{Name: r.Name, Need: r.Length, Have: len(data) - r.Offset}
		}
		return data[r.Offset : r.Offset+r.Length], nil
	}

	var g errgroup.Group
	loaders := []func([]byte){
		loader.LoadVocabulary, loader.LoadSuffixArray, loader.LoadPostings,
		loader.LoadSkipLists, loader.LoadSectionTable, loader.LoadLevDFA,
		loader.LoadDocs, loader.LoadWasm, loader.LoadDictTables,
	}
	for i, load := range loaders {
		g.Go(func() error {
			bytes, err := slice(i)
			if err != nil {
				return err
			}
			load(bytes)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return loader.Finalize()
}
