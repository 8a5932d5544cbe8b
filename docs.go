package sift

// ═══════════════════════════════════════════════════════════════════════════════
// DOCS SECTION: Embedded Document Metadata
// ═══════════════════════════════════════════════════════════════════════════════
// Search results need titles, excerpts and hrefs without a second network
// round trip, so the metadata rides inside the index. The encoding leans on
// the dictionary tables for everything repetitive:
//
//	kind:     u8 tag (0=page, 1=post, 0xFF=inline string follows)
//	title:    varint length + utf8 (titles rarely repeat, always inline)
//	excerpt:  varint length + utf8
//	href:     u16 prefix dictionary id (dictInline → whole href inline),
//	          then varint length + utf8 remainder
//	category: u16 dictionary id (dictNone → absent, dictInline → literal)
//	author:   u16 dictionary id (same sentinels)
//	tags:     varint count, then u16 dictionary ids (dictInline → literal)
//
// A corpus with one category and one author pays 4 bytes per document for
// both fields combined instead of re-serializing the strings.
// ═══════════════════════════════════════════════════════════════════════════════

const (
	docKindPage   = 0
	docKindPost   = 1
	docKindInline = 0xFF
)

// appendString appends a varint length prefix and the raw bytes of s.
func appendString(buf []byte, s string) []byte {
	buf = appendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// appendU16 appends v little-endian.
func appendU16(buf []byte, v uint16) []byte {
	return append(buf, byte(v), byte(v>>8))
}

// encodeDictRef appends the dictionary reference for s: the interned id, or
// dictNone for "", or dictInline plus the literal when the table is full.
func encodeDictRef(buf []byte, table *DictTable, s string) []byte {
	if s == "" {
		return appendU16(buf, dictNone)
	}
	if id, ok := table.Lookup(s); ok {
		return appendU16(buf, id)
	}
	buf = appendU16(buf, dictInline)
	return appendString(buf, s)
}

// decodeDictRef reads one dictionary reference.
func decodeDictRef(r *byteReader, table *DictTable) (string, error) {
	id, err := r.u16()
	if err != nil {
		return "", err
	}
	switch id {
	case dictNone:
		return "", nil
	case dictInline:
		return r.lengthPrefixedString()
	default:
		s, ok := table.Get(id)
		if !ok {
			return "", &TruncatedSectionError{Name: r.section, Need: int(id), Have: table.Len()}
		}
		return s, nil
	}
}

// encodeDocsSection appends the docs section: varint count then each record.
//
// The dictionary tables must already contain every interned value; the
// builder populates them before serializing.
func encodeDocsSection(buf []byte, docs []Document, tables *DictTables) []byte {
	buf = appendUvarint(buf, uint64(len(docs)))
	for _, doc := range docs {
		// Kind tag.
		switch doc.Kind {
		case "page":
			buf = append(buf, docKindPage)
		case "post":
			buf = append(buf, docKindPost)
		default:
			buf = append(buf, docKindInline)
			buf = appendString(buf, doc.Kind)
		}

		buf = appendString(buf, doc.Title)
		buf = appendString(buf, doc.Excerpt)

		// Href: interned prefix + inline remainder.
		prefix, rest, ok := extractHrefPrefix(doc.Href)
		if ok {
			if id, found := tables.HrefPrefix.Lookup(prefix); found {
				buf = appendU16(buf, id)
				buf = appendString(buf, rest)
			} else {
				buf = appendU16(buf, dictInline)
				buf = appendString(buf, doc.Href)
			}
		} else {
			buf = appendU16(buf, dictInline)
			buf = appendString(buf, doc.Href)
		}

		buf = encodeDictRef(buf, tables.Category, doc.Category)
		buf = encodeDictRef(buf, tables.Author, doc.Author)

		buf = appendUvarint(buf, uint64(len(doc.Tags)))
		for _, tag := range doc.Tags {
			buf = encodeDictRef(buf, tables.Tags, tag)
		}
	}
	return buf
}

// decodeDocsSection reads document metadata, resolving dictionary ids.
//
// Document ids are assigned densely in section order; the stored records
// carry no explicit id.
func decodeDocsSection(data []byte, tables *DictTables) ([]Document, error) {
	r := newByteReader(data, "docs")
	count, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	// Each record costs at least a kind tag plus five length bytes.
	if count > uint64(r.remaining()) {
		return nil, &TruncatedSectionError{Name: r.section, Need: int(count), Have: r.remaining()}
	}

	docs := make([]Document, 0, count)
	for i := uint64(0); i < count; i++ {
		var doc Document
		doc.ID = uint32(i)

		tag, err := r.u8()
		if err != nil {
			return nil, err
		}
		switch tag {
		case docKindPage:
			doc.Kind = "page"
		case docKindPost:
			doc.Kind = "post"
		case docKindInline:
			doc.Kind, err = r.lengthPrefixedString()
			if err != nil {
				return nil, err
			}
		default:
			return nil, &TruncatedSectionError{Name: r.section, Need: int(tag), Have: 2}
		}

		if doc.Title, err = r.lengthPrefixedString(); err != nil {
			return nil, err
		}
		if doc.Excerpt, err = r.lengthPrefixedString(); err != nil {
			return nil, err
		}

		prefixID, err := r.u16()
		if err != nil {
			return nil, err
		}
		rest, err := r.lengthPrefixedString()
		if err != nil {
			return nil, err
		}
		if prefixID == dictInline {
			doc.Href = rest
		} else {
			prefix, ok := tables.HrefPrefix.Get(prefixID)
			if !ok {
				return nil, &TruncatedSectionError{Name: r.section, Need: int(prefixID), Have: tables.HrefPrefix.Len()}
			}
			doc.Href = prefix + rest
		}

		if doc.Category, err = decodeDictRef(r, tables.Category); err != nil {
			return nil, err
		}
		if doc.Author, err = decodeDictRef(r, tables.Author); err != nil {
			return nil, err
		}

		tagCount, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if tagCount > uint64(r.remaining())+1 {
			return nil, &TruncatedSectionError{Name: r.section, Need: int(tagCount), Have: r.remaining()}
		}
		for t := uint64(0); t < tagCount; t++ {
			tag, err := decodeDictRef(r, tables.Tags)
			if err != nil {
				return nil, err
			}
			doc.Tags = append(doc.Tags, tag)
		}

		docs = append(docs, doc)
	}
	return docs, nil
}
