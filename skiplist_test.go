package sift

import "testing"

// ═══════════════════════════════════════════════════════════════════════════════
// SKIP LIST TESTS
// ═══════════════════════════════════════════════════════════════════════════════

// makeBlockLayout fabricates block metadata for a list of docFreq docs with
// one block per 128 docs, doc ids 0, 128, 256, ...
func makeBlockLayout(docFreq int) ([]uint32, []uint32) {
	numBlocks := docFreq / postingBlockSize
	docs := make([]uint32, numBlocks)
	offsets := make([]uint32, numBlocks)
	for i := range docs {
		docs[i] = uint32(i * postingBlockSize)
		offsets[i] = uint32(i * 200) // arbitrary but increasing
	}
	return docs, offsets
}

func TestSkipLevelCount(t *testing.T) {
	tests := []struct {
		docFreq int
		want    int
	}{
		{1025, 5},  // log4(1025) ≈ 5
		{4096, 6},  // 4^6 = 4096
		{100000, 8},
	}
	for _, tt := range tests {
		if got := skipLevelCount(tt.docFreq); got != tt.want {
			t.Errorf("skipLevelCount(%d) = %d, want %d", tt.docFreq, got, tt.want)
		}
	}
}

func TestBuildSkipList_UnderThreshold(t *testing.T) {
	docs, offsets := makeBlockLayout(1024)
	if s := buildSkipList(0, 1024, docs, offsets); s != nil {
		t.Error("1024 docs is at the threshold, no skip list expected")
	}
}

func TestBuildSkipList_Levels(t *testing.T) {
	docs, offsets := makeBlockLayout(2048)
	s := buildSkipList(3, 2048, docs, offsets)
	if s == nil {
		t.Fatal("2048 docs should build a skip list")
	}

	// Level 0: one waypoint per block.
	if len(s.Levels[0]) != 16 {
		t.Errorf("level 0 has %d waypoints, want 16", len(s.Levels[0]))
	}
	// Each higher level samples every fourth waypoint of the one below.
	for l := 1; l < len(s.Levels); l++ {
		below := s.Levels[l-1]
		level := s.Levels[l]
		wantLen := (len(below) + skipLevelFanout - 1) / skipLevelFanout
		if len(level) != wantLen {
			t.Errorf("level %d has %d waypoints, want %d", l, len(level), wantLen)
		}
		for i, w := range level {
			if w != below[i*skipLevelFanout] {
				t.Errorf("level %d waypoint %d = %+v, want %+v", l, i, w, below[i*skipLevelFanout])
			}
		}
	}
}

func TestSkipList_AdvanceTo(t *testing.T) {
	docs, offsets := makeBlockLayout(4096)
	s := buildSkipList(0, 4096, docs, offsets)

	tests := []struct {
		target    uint32
		wantDoc   uint32
		wantFound bool
	}{
		{0, 0, true},
		{5, 0, true},        // inside the first block
		{128, 128, true},    // exactly the second block's first doc
		{200, 128, true},    // inside the second block
		{4095, 3968, true},  // last block
		{999999, 3968, true}, // past the end: last block
	}
	for _, tt := range tests {
		w, found := s.AdvanceTo(tt.target)
		if found != tt.wantFound || w.DocID != tt.wantDoc {
			t.Errorf("AdvanceTo(%d) = doc %d, %v; want doc %d, %v",
				tt.target, w.DocID, found, tt.wantDoc, tt.wantFound)
		}
	}
}

func TestSkipList_AdvanceTo_MatchesLinearScan(t *testing.T) {
	docs, offsets := makeBlockLayout(8192)
	s := buildSkipList(0, 8192, docs, offsets)

	for target := uint32(0); target < 8192; target += 37 {
		// Linear reference: last block whose first doc ≤ target.
		var want SkipWaypoint
		found := false
		for i := range docs {
			if docs[i] <= target {
				want = SkipWaypoint{DocID: docs[i], BlockOffset: offsets[i]}
				found = true
			}
		}

		got, ok := s.AdvanceTo(target)
		if ok != found || got != want {
			t.Fatalf("AdvanceTo(%d) = %+v, %v; want %+v, %v", target, got, ok, want, found)
		}
	}
}

func TestSkipList_RoundTrip(t *testing.T) {
	docs, offsets := makeBlockLayout(2048)
	lists := []*SkipList{
		buildSkipList(7, 2048, docs, offsets),
		buildSkipList(12, 2048, docs, offsets),
	}

	buf := encodeSkipListSection(nil, lists)
	decoded, err := decodeSkipListSection(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(decoded) != 2 {
		t.Fatalf("decoded %d lists, want 2", len(decoded))
	}
	for _, orig := range lists {
		got, ok := decoded[orig.TermOrd]
		if !ok {
			t.Fatalf("term %d missing after round trip", orig.TermOrd)
		}
		if len(got.Levels) != len(orig.Levels) {
			t.Fatalf("term %d: %d levels, want %d", orig.TermOrd, len(got.Levels), len(orig.Levels))
		}
		for l := range orig.Levels {
			if len(got.Levels[l]) != len(orig.Levels[l]) {
				t.Fatalf("term %d level %d: %d waypoints, want %d",
					orig.TermOrd, l, len(got.Levels[l]), len(orig.Levels[l]))
			}
			for i := range orig.Levels[l] {
				if got.Levels[l][i] != orig.Levels[l][i] {
					t.Errorf("term %d level %d waypoint %d differs", orig.TermOrd, l, i)
				}
			}
		}
	}
}

func TestSkipList_DecodeTruncated(t *testing.T) {
	docs, offsets := makeBlockLayout(2048)
	buf := encodeSkipListSection(nil, []*SkipList{buildSkipList(0, 2048, docs, offsets)})

	if _, err := decodeSkipListSection(buf[:len(buf)/2]); err == nil {
		t.Error("truncated skip section should fail")
	}
}
