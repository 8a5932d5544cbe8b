package sift

// ═══════════════════════════════════════════════════════════════════════════════
// DICTIONARY TABLES: String Interning for Document Metadata
// ═══════════════════════════════════════════════════════════════════════════════
// Blog corpora repeat themselves: a thousand posts share a dozen categories,
// a handful of authors, a few hundred tags, and almost every href starts
// with the same handful of path prefixes. Instead of writing "engineering"
// a thousand times into the docs section, we write it once into a dictionary
// table and store a 2-byte id per document.
//
// Four tables ship with every index:
//
//	category     → Document.Category values
//	author       → Document.Author values
//	tags         → individual tag strings
//	href-prefix  → leading directory of Document.Href ("/posts/", "/pages/")
//
// A document field that is NOT in its table (rare, but the builder caps
// table sizes at 65533 entries) is written inline after a sentinel id, so the format
// never loses data to the optimization.
// ═══════════════════════════════════════════════════════════════════════════════

import "strings"

// dictInline is the reserved id meaning "an inline literal string follows".
const dictInline = uint16(0xFFFF)

// dictNone is the reserved id meaning "this optional field is absent".
const dictNone = uint16(0xFFFE)

// maxDictEntries caps a table at 65533 entries (ids 0..0xFFFC), so no
// assigned id reaches either sentinel.
const maxDictEntries = 0xFFFE - 1

// DictTable interns strings to dense uint16 ids.
//
// Ids are assigned in first-seen order, which makes the encoded table a
// deterministic function of the build input.
type DictTable struct {
	strings []string
	ids     map[string]uint16
}

// NewDictTable returns an empty table.
func NewDictTable() *DictTable {
	return &DictTable{ids: make(map[string]uint16)}
}

// Intern returns the id for s, assigning the next free id on first sight.
// Returns dictInline when the table is full.
func (t *DictTable) Intern(s string) uint16 {
	if id, ok := t.ids[s]; ok {
		return id
	}
	if len(t.strings) >= maxDictEntries {
		return dictInline
	}
	id := uint16(len(t.strings))
	t.strings = append(t.strings, s)
	t.ids[s] = id
	return id
}

// Lookup returns the id for s without inserting.
func (t *DictTable) Lookup(s string) (uint16, bool) {
	id, ok := t.ids[s]
	return id, ok
}

// Get returns the string for id, or "" when the id is out of range.
func (t *DictTable) Get(id uint16) (string, bool) {
	if int(id) >= len(t.strings) {
		return "", false
	}
	return t.strings[id], true
}

// Len reports the number of interned strings.
func (t *DictTable) Len() int {
	return len(t.strings)
}

// encode appends the table to buf: varint(count), then length-prefixed UTF-8
// strings in id order.
func (t *DictTable) encode(buf []byte) []byte {
	buf = appendUvarint(buf, uint64(len(t.strings)))
	for _, s := range t.strings {
		buf = appendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}
	return buf
}

// decodeDictTable reads one table from r.
func decodeDictTable(r *byteReader) (*DictTable, error) {
	count, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if count > uint64(r.remaining()) {
		// Each entry is at least one length byte; a count beyond the buffer
		// is corruption, reject before allocating.
		return nil, &TruncatedSectionError{Name: r.section, Need: int(count), Have: r.remaining()}
	}
	t := &DictTable{
		strings: make([]string, 0, count),
		ids:     make(map[string]uint16, count),
	}
	for i := uint64(0); i < count; i++ {
		s, err := r.lengthPrefixedString()
		if err != nil {
			return nil, err
		}
		t.strings = append(t.strings, s)
		t.ids[s] = uint16(i)
	}
	return t, nil
}

// DictTables bundles the four per-index dictionaries.
type DictTables struct {
	Category   *DictTable
	Author     *DictTable
	Tags       *DictTable
	HrefPrefix *DictTable
}

// NewDictTables returns four empty tables.
func NewDictTables() *DictTables {
	return &DictTables{
		Category:   NewDictTable(),
		Author:     NewDictTable(),
		Tags:       NewDictTable(),
		HrefPrefix: NewDictTable(),
	}
}

// encode appends all four tables: u8 table count (always 4) followed by the
// tables in the fixed order category, author, tags, href-prefix.
func (t *DictTables) encode(buf []byte) []byte {
	buf = append(buf, 4)
	buf = t.Category.encode(buf)
	buf = t.Author.encode(buf)
	buf = t.Tags.encode(buf)
	buf = t.HrefPrefix.encode(buf)
	return buf
}

// decodeDictTables reads the dictionary section.
func decodeDictTables(data []byte) (*DictTables, error) {
	r := newByteReader(data, "dict tables")
	count, err := r.u8()
	if err != nil {
		return nil, err
	}
	if count != 4 {
		return nil, &TruncatedSectionError{Name: r.section, Need: 4, Have: int(count)}
	}
	tables := &DictTables{}
	for _, dst := range []**DictTable{&tables.Category, &tables.Author, &tables.Tags, &tables.HrefPrefix} {
		t, err := decodeDictTable(r)
		if err != nil {
			return nil, err
		}
		*dst = t
	}
	return tables, nil
}

// TotalEntries reports the number of interned strings across all tables.
func (t *DictTables) TotalEntries() int {
	return t.Category.Len() + t.Author.Len() + t.Tags.Len() + t.HrefPrefix.Len()
}

// extractHrefPrefix splits an href into its leading directory and remainder.
//
// "/posts/2024/hello" → ("/posts/", "2024/hello"). Hrefs with no second
// slash have no useful prefix and are stored whole.
func extractHrefPrefix(href string) (prefix, rest string, ok bool) {
	if len(href) < 2 || href[0] != '/' {
		return "", href, false
	}
	idx := strings.IndexByte(href[1:], '/')
	if idx < 0 {
		return "", href, false
	}
	cut := idx + 2 // include the trailing slash
	return href[:cut], href[cut:], true
}
