package sift

import (
	"errors"
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════════
// BINARY LAYER TESTS
// ═══════════════════════════════════════════════════════════════════════════════

// buildTestIndex serializes a small but fully-featured corpus: categories,
// authors, tags, sections, headings, shared href prefixes.
func buildTestIndex(t *testing.T) []byte {
	t.Helper()
	builder := NewIndexBuilder()

	docs := []struct {
		doc  Document
		text string
	}{
		{
			Document{Title: "Photography", Href: "/posts/photography", Kind: "post",
				Category: "adventures", Author: "harish", Tags: []string{"camera"}},
			"cameras and lenses for landscape work",
		},
		{
			Document{Title: "Mountains", Href: "/posts/mountains", Kind: "post",
				Category: "adventures", Author: "harish"},
			"photography in the mountains is great",
		},
		{
			Document{Title: "Go Internals", Href: "/pages/go-internals", Kind: "page",
				Category: "engineering", Tags: []string{"golang", "compilers"}},
			"escape analysis and the garbage collector",
		},
	}
	for _, d := range docs {
		if _, err := builder.AddDocument(d.doc, d.text, nil); err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
	}

	// One document with explicit structure, to exercise sections.
	structured := "Kernel Basics\nScheduling\nthe kernel scheduler balances runqueues"
	boundaries := []FieldBoundary{
		{Start: 0, End: 13, Field: FieldTitle},
		{Start: 14, End: 24, Field: FieldHeading, SectionID: "scheduling", HeadingLevel: 2},
		{Start: 25, End: len(structured), Field: FieldContent, SectionID: "scheduling"},
	}
	doc := Document{Title: "Kernel Basics", Href: "/posts/kernel", Kind: "post", Category: "engineering"}
	if _, err := builder.AddDocument(doc, structured, boundaries); err != nil {
		t.Fatalf("AddDocument(structured): %v", err)
	}

	data, err := builder.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return data
}

func TestHeader_RoundTrip(t *testing.T) {
	h := Header{
		Version: formatVersion, Flags: flagSkipLists,
		DocumentCount: 10, TermCount: 250,
		VocabLen: 1000, SuffixArrayLen: 2000, PostingsLen: 3000, SkipListLen: 40,
		SectionTableLen: 50, LevDFALen: 1200, DocsLen: 800, WasmLen: 0, DictTablesLen: 60,
	}
	buf := h.encode(nil)
	if len(buf) != headerSize {
		t.Fatalf("header is %d bytes, want %d", len(buf), headerSize)
	}
	decoded, err := decodeHeader(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *decoded != h {
		t.Errorf("got %+v, want %+v", *decoded, h)
	}
}

func TestLoadedLayer_RoundTrip(t *testing.T) {
	data := buildTestIndex(t)

	layer, err := LoadedLayerFromBytes(data)
	if err != nil {
		t.Fatalf("LoadedLayerFromBytes: %v", err)
	}

	if len(layer.Docs) != 4 {
		t.Errorf("loaded %d docs, want 4", len(layer.Docs))
	}
	if layer.Docs[0].Title != "Photography" {
		t.Errorf("doc 0 title = %q", layer.Docs[0].Title)
	}
	if layer.Docs[0].Category != "adventures" || layer.Docs[0].Author != "harish" {
		t.Errorf("doc 0 dictionary fields lost: %+v", layer.Docs[0])
	}
	if len(layer.Docs[2].Tags) != 2 || layer.Docs[2].Tags[0] != "golang" {
		t.Errorf("doc 2 tags = %v", layer.Docs[2].Tags)
	}
	if layer.Docs[3].Href != "/posts/kernel" {
		t.Errorf("doc 3 href = %q (prefix reassembly broken?)", layer.Docs[3].Href)
	}

	if len(layer.Vocabulary) == 0 || len(layer.Postings) != len(layer.Vocabulary) {
		t.Fatalf("vocabulary %d terms, postings %d lists",
			len(layer.Vocabulary), len(layer.Postings))
	}
	if layer.LevDFA == nil {
		t.Error("Levenshtein DFA missing after round trip")
	}
	if len(layer.SectionTable) != 1 || layer.SectionTable[0] != "scheduling" {
		t.Errorf("section table = %v", layer.SectionTable)
	}

	// The loaded layer must satisfy every structural invariant.
	if err := validateLayer(layer); err != nil {
		t.Errorf("validateLayer: %v", err)
	}
}

func TestLoadedLayer_InvalidMagic(t *testing.T) {
	data := buildTestIndex(t)
	data[0] = 'X'
	if _, err := LoadedLayerFromBytes(data); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("got %v, want ErrInvalidMagic", err)
	}
}

func TestLoadedLayer_UnsupportedVersion(t *testing.T) {
	data := buildTestIndex(t)
	data[4] = formatVersion + 1

	var uv *UnsupportedVersionError
	if _, err := LoadedLayerFromBytes(data); !errors.As(err, &uv) {
		t.Fatalf("got %v, want UnsupportedVersionError", err)
	} else if uv.Found != formatVersion+1 {
		t.Errorf("Found = %d", uv.Found)
	}
}

func TestLoadedLayer_SingleBitFlipFailsCrc(t *testing.T) {
	data := buildTestIndex(t)

	// Flip one bit in the body (past the version byte so we hit the CRC,
	// not an earlier structural check).
	flip := headerSize + 3
	data[flip] ^= 0x10

	var crcErr *BadCrcError
	if _, err := LoadedLayerFromBytes(data); !errors.As(err, &crcErr) {
		t.Fatalf("got %v, want BadCrcError", err)
	}
	if crcErr.Stored == crcErr.Computed {
		t.Error("stored and computed CRC should differ")
	}
}

func TestLoadedLayer_TruncatedFile(t *testing.T) {
	data := buildTestIndex(t)

	for _, cut := range []int{0, 3, headerSize - 1, headerSize + 10, len(data) - footerSize, len(data) - 1} {
		if _, err := LoadedLayerFromBytes(data[:cut]); err == nil {
			t.Errorf("cut at %d: load should fail", cut)
		}
	}
}

func TestLoadedLayer_BadFooterMagic(t *testing.T) {
	data := buildTestIndex(t)
	data[len(data)-1] = 'X'
	if _, err := LoadedLayerFromBytes(data); !errors.Is(err, ErrInvalidFooter) {
		t.Errorf("got %v, want ErrInvalidFooter", err)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	// Two independent builds of the same corpus must be byte-identical;
	// the whole artifact is a pure function of its input.
	a := buildTestIndex(t)
	b := buildTestIndex(t)

	if len(a) != len(b) {
		t.Fatalf("build sizes differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("builds differ at byte %d", i)
		}
	}
}

func TestEncode_WasmSectionPreserved(t *testing.T) {
	builder := NewIndexBuilderWithConfig(BuilderConfig{
		Analyzer:  DefaultAnalyzerConfig(),
		WasmBytes: []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00},
	})
	if _, err := builder.AddDocument(Document{Title: "Doc", Href: "/d", Kind: "page"}, "content words", nil); err != nil {
		t.Fatal(err)
	}
	data, err := builder.Build()
	if err != nil {
		t.Fatal(err)
	}

	layer, err := LoadedLayerFromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(layer.WasmBytes) != 8 || layer.WasmBytes[1] != 0x61 {
		t.Errorf("wasm bytes = %x", layer.WasmBytes)
	}
}
