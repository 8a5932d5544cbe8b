package sift

// ═══════════════════════════════════════════════════════════════════════════════
// BINARY LAYER: The .sorex Index File
// ═══════════════════════════════════════════════════════════════════════════════
// Everything a searcher needs ships in one self-describing artifact:
//
//	┌──────────────────────────────────────────────────────────┐
//	│ HEADER (52 bytes)                                        │
//	│   magic "SIFT", version, flags, doc/term counts,         │
//	│   nine section lengths, 2 reserved bytes                 │
//	├──────────────────────────────────────────────────────────┤
//	│ vocabulary      sorted, length-prefixed terms            │
//	│ suffix array    FOR-packed (term_ord, offset) pairs      │
//	│ postings        block PFOR, 128-doc blocks per term      │
//	│ skip lists      for terms with >1024 docs                │
//	│ section table   section-id strings for deep links        │
//	│ levenshtein dfa precomputed fuzzy automaton              │
//	│ docs            document metadata, dictionary-compressed │
//	│ wasm            embedded runtime (may be empty)          │
//	│ dict tables     category/author/tags/href-prefix         │
//	├──────────────────────────────────────────────────────────┤
//	│ FOOTER (8 bytes): crc32 over header+sections, "TFIS"     │
//	└──────────────────────────────────────────────────────────┘
//
// All multi-byte integers are little-endian. Section offsets are the
// running prefix sum of the header lengths, so once the header is parsed
// every section is an independent byte slice: decodable in any order, in
// parallel, or not at all until needed (see IncrementalLoader).
//
// PARSE CONTRACT:
// ---------------
// Every length is checked against the remaining buffer before any
// allocation, every section decoder is bounded, and the footer CRC is
// verified before the caller may touch the result. The format is built to
// be parsed from untrusted bytes.
// ═══════════════════════════════════════════════════════════════════════════════

import (
	"encoding/binary"
	"hash/crc32"
)

const (
	// formatVersion is the current .sorex format revision.
	formatVersion = 7

	// headerSize is the fixed byte width of the header.
	headerSize = 52

	// footerSize is the fixed byte width of the footer.
	footerSize = 8

	// flagSkipLists marks indexes that carry a skip-list section.
	flagSkipLists = 1 << 0
)

var (
	magicHeader = [4]byte{'S', 'I', 'F', 'T'}
	magicFooter = [4]byte{'T', 'F', 'I', 'S'} // reversed, marks a valid end
)

// Section names, used for error attribution and incremental-load tracking.
const (
	sectionVocabulary   = "vocabulary"
	sectionSuffixArray  = "suffix array"
	sectionPostings     = "postings"
	sectionSkipLists    = "skip lists"
	sectionSectionTable = "section table"
	sectionLevDFA       = "levenshtein dfa"
	sectionDocs         = "docs"
	sectionWasm         = "wasm"
	sectionDictTables   = "dict tables"
)

// sectionCount is the number of independently decodable sections.
const sectionCount = 9

// Header is the decoded fixed-width file header.
type Header struct {
	Version         uint8
	Flags           uint8
	DocumentCount   uint32
	TermCount       uint32
	VocabLen        uint32
	SuffixArrayLen  uint32
	PostingsLen     uint32
	SkipListLen     uint32
	SectionTableLen uint32
	LevDFALen       uint32
	DocsLen         uint32
	WasmLen         uint32
	DictTablesLen   uint32
}

// sectionLengths returns the nine section lengths in file order.
func (h *Header) sectionLengths() [sectionCount]uint32 {
	return [sectionCount]uint32{
		h.VocabLen, h.SuffixArrayLen, h.PostingsLen, h.SkipListLen,
		h.SectionTableLen, h.LevDFALen, h.DocsLen, h.WasmLen, h.DictTablesLen,
	}
}

// sectionNames lists the section names in file order.
func sectionNames() [sectionCount]string {
	return [sectionCount]string{
		sectionVocabulary, sectionSuffixArray, sectionPostings, sectionSkipLists,
		sectionSectionTable, sectionLevDFA, sectionDocs, sectionWasm, sectionDictTables,
	}
}

// bodyLen is the total byte length of header plus sections.
func (h *Header) bodyLen() int {
	total := headerSize
	for _, l := range h.sectionLengths() {
		total += int(l)
	}
	return total
}

// encode appends the 52-byte header.
func (h *Header) encode(buf []byte) []byte {
	buf = append(buf, magicHeader[:]...)
	buf = append(buf, h.Version, h.Flags)
	for _, v := range []uint32{
		h.DocumentCount, h.TermCount,
		h.VocabLen, h.SuffixArrayLen, h.PostingsLen, h.SkipListLen,
		h.SectionTableLen, h.LevDFALen, h.DocsLen, h.WasmLen, h.DictTablesLen,
	} {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	return append(buf, 0, 0) // reserved
}

// decodeHeader parses and validates the fixed header.
func decodeHeader(data []byte) (*Header, error) {
	if len(data) < headerSize {
		return nil, &TruncatedSectionError{Name: "header", Need: headerSize, Have: len(data)}
	}
	if [4]byte(data[0:4]) != magicHeader {
		return nil, ErrInvalidMagic
	}
	h := &Header{Version: data[4], Flags: data[5]}
	if h.Version != formatVersion {
		return nil, &UnsupportedVersionError{Found: h.Version, Expected: formatVersion}
	}
	fields := []*uint32{
		&h.DocumentCount, &h.TermCount,
		&h.VocabLen, &h.SuffixArrayLen, &h.PostingsLen, &h.SkipListLen,
		&h.SectionTableLen, &h.LevDFALen, &h.DocsLen, &h.WasmLen, &h.DictTablesLen,
	}
	off := 6
	for _, f := range fields {
		*f = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}
	return h, nil
}

// sectionSlices cuts the body into the nine section byte ranges, verifying
// each length against the remaining buffer.
func sectionSlices(h *Header, data []byte) ([sectionCount][]byte, error) {
	var slices [sectionCount][]byte
	names := sectionNames()
	offset := headerSize
	for i, length := range h.sectionLengths() {
		end := offset + int(length)
		if end > len(data) || end < offset {
			return slices, &TruncatedSectionError{Name: names[i], Need: int(length), Have: len(data) - offset}
		}
		slices[i] = data[offset:end]
		offset = end
	}
	return slices, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// LOADED LAYER
// ═══════════════════════════════════════════════════════════════════════════════

// LoadedLayer is the in-memory mirror of one index file: every section
// decoded, CRC verified, ready to hand to NewTierSearcher.
type LoadedLayer struct {
	Header       Header
	Vocabulary   []string
	SuffixArray  []SuffixEntry
	Postings     [][]PostingEntry
	SkipLists    map[uint32]*SkipList
	SectionTable []string
	LevDFA       *ParametricDFA
	Docs         []Document
	WasmBytes    []byte
	DictTables   *DictTables
}

// LoadedLayerFromBytes parses a complete index file: header, CRC
// verification, then every section.
//
// The CRC is checked BEFORE section decoding so corrupt bytes never reach
// the structural decoders.
func LoadedLayerFromBytes(data []byte) (*LoadedLayer, error) {
	header, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	bodyLen := header.bodyLen()
	if len(data) < bodyLen+footerSize {
		return nil, &TruncatedSectionError{Name: "footer", Need: bodyLen + footerSize, Have: len(data)}
	}

	// Footer: crc32 then reversed magic.
	footer := data[bodyLen : bodyLen+footerSize]
	if [4]byte(footer[4:8]) != magicFooter {
		return nil, ErrInvalidFooter
	}
	stored := binary.LittleEndian.Uint32(footer[0:4])
	computed := crc32.ChecksumIEEE(data[:bodyLen])
	if stored != computed {
		return nil, &BadCrcError{Stored: stored, Computed: computed}
	}

	slices, err := sectionSlices(header, data)
	if err != nil {
		return nil, err
	}

	layer := &LoadedLayer{Header: *header}

	// Dictionary tables decode first: the docs section references them.
	if layer.DictTables, err = decodeDictTables(slices[8]); err != nil {
		return nil, err
	}
	if layer.Vocabulary, err = decodeVocabularySection(slices[0], int(header.TermCount)); err != nil {
		return nil, err
	}
	if layer.SuffixArray, err = decodeSuffixArraySection(slices[1]); err != nil {
		return nil, err
	}
	if layer.Postings, err = decodePostingsSection(slices[2], int(header.TermCount)); err != nil {
		return nil, err
	}
	if header.Flags&flagSkipLists != 0 {
		if layer.SkipLists, err = decodeSkipListSection(slices[3]); err != nil {
			return nil, err
		}
	} else {
		layer.SkipLists = map[uint32]*SkipList{}
	}
	if layer.SectionTable, err = decodeSectionTable(slices[4]); err != nil {
		return nil, err
	}
	if len(slices[5]) > 0 {
		if layer.LevDFA, err = decodeParametricDFA(slices[5]); err != nil {
			return nil, err
		}
	}
	if layer.Docs, err = decodeDocsSection(slices[6], layer.DictTables); err != nil {
		return nil, err
	}
	layer.WasmBytes = append([]byte(nil), slices[7]...)

	return layer, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// SECTION CODECS (vocabulary, section table)
// ═══════════════════════════════════════════════════════════════════════════════

// encodeVocabularySection appends each term as varint length + UTF-8 bytes,
// in sorted order.
func encodeVocabularySection(buf []byte, vocabulary []string) []byte {
	for _, term := range vocabulary {
		buf = appendString(buf, term)
	}
	return buf
}

// decodeVocabularySection reads termCount length-prefixed terms.
func decodeVocabularySection(data []byte, termCount int) ([]string, error) {
	r := newByteReader(data, sectionVocabulary)
	if termCount > len(data) {
		return nil, &TruncatedSectionError{Name: r.section, Need: termCount, Have: len(data)}
	}
	vocab := make([]string, 0, termCount)
	for i := 0; i < termCount; i++ {
		term, err := r.lengthPrefixedString()
		if err != nil {
			return nil, err
		}
		vocab = append(vocab, term)
	}
	return vocab, nil
}

// encodeSectionTable appends the deduplicated section-id strings: varint
// count then length-prefixed ids.
func encodeSectionTable(buf []byte, table []string) []byte {
	buf = appendUvarint(buf, uint64(len(table)))
	for _, id := range table {
		buf = appendString(buf, id)
	}
	return buf
}

// decodeSectionTable reads the section-id table.
func decodeSectionTable(data []byte) ([]string, error) {
	r := newByteReader(data, sectionSectionTable)
	count, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if count > uint64(r.remaining()) {
		return nil, &TruncatedSectionError{Name: r.section, Need: int(count), Have: r.remaining()}
	}
	table := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		id, err := r.lengthPrefixedString()
		if err != nil {
			return nil, err
		}
		table = append(table, id)
	}
	return table, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// LAYER ENCODER
// ═══════════════════════════════════════════════════════════════════════════════

// layerEncoder assembles a complete index file. The builder fills its
// fields, then Encode lays down header, sections, and footer.
//
// Mirrors the decoder exactly: for every buffer it produces,
// LoadedLayerFromBytes(Encode()) round-trips.
type layerEncoder struct {
	Vocabulary   []string
	SuffixArray  []SuffixEntry
	Postings     [][]PostingEntry
	SectionTable []string
	LevDFA       *ParametricDFA
	Docs         []Document
	WasmBytes    []byte
	DictTables   *DictTables
}

// Encode serializes the full artifact.
//
// Skip lists are derived here, from the actual block layout the postings
// encoder produced, so waypoint offsets can never drift from the bytes
// they point into.
func (e *layerEncoder) Encode() []byte {
	// Sections first; the header needs their lengths.
	vocab := encodeVocabularySection(nil, e.Vocabulary)
	sa := encodeSuffixArraySection(nil, e.SuffixArray)
	postings, blockMeta := encodePostingsSection(nil, e.Postings)

	var skipLists []*SkipList
	for ord, list := range e.Postings {
		meta := blockMeta[ord]
		blockDocs := make([]uint32, len(meta))
		blockOffsets := make([]uint32, len(meta))
		for i, m := range meta {
			blockDocs[i] = m.firstDoc
			blockOffsets[i] = m.offset
		}
		if sl := buildSkipList(uint32(ord), len(list), blockDocs, blockOffsets); sl != nil {
			skipLists = append(skipLists, sl)
		}
	}
	var skip []byte
	if len(skipLists) > 0 {
		skip = encodeSkipListSection(nil, skipLists)
	}
	secTable := encodeSectionTable(nil, e.SectionTable)
	var dfa []byte
	if e.LevDFA != nil {
		dfa = e.LevDFA.encode(nil)
	}
	tables := e.DictTables
	if tables == nil {
		tables = NewDictTables()
	}
	docs := encodeDocsSection(nil, e.Docs, tables)
	dict := tables.encode(nil)

	header := Header{
		Version:         formatVersion,
		DocumentCount:   uint32(len(e.Docs)),
		TermCount:       uint32(len(e.Vocabulary)),
		VocabLen:        uint32(len(vocab)),
		SuffixArrayLen:  uint32(len(sa)),
		PostingsLen:     uint32(len(postings)),
		SkipListLen:     uint32(len(skip)),
		SectionTableLen: uint32(len(secTable)),
		LevDFALen:       uint32(len(dfa)),
		DocsLen:         uint32(len(docs)),
		WasmLen:         uint32(len(e.WasmBytes)),
		DictTablesLen:   uint32(len(dict)),
	}
	if len(skip) > 0 {
		header.Flags |= flagSkipLists
	}

	buf := make([]byte, 0, header.bodyLen()+footerSize)
	buf = header.encode(buf)
	buf = append(buf, vocab...)
	buf = append(buf, sa...)
	buf = append(buf, postings...)
	buf = append(buf, skip...)
	buf = append(buf, secTable...)
	buf = append(buf, dfa...)
	buf = append(buf, docs...)
	buf = append(buf, e.WasmBytes...)
	buf = append(buf, dict...)

	crc := crc32.ChecksumIEEE(buf)
	buf = binary.LittleEndian.AppendUint32(buf, crc)
	buf = append(buf, magicFooter[:]...)
	return buf
}
