package sift

import (
	"math/rand"
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════════
// LEVENSHTEIN DFA & MATCHER TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestBuildParametricDFA(t *testing.T) {
	dfa := BuildParametricDFA(true)

	if dfa.NumStates == 0 {
		t.Fatal("automaton has no states")
	}
	if dfa.NumStates >= 200 {
		t.Errorf("automaton has %d states; the k=2 construction stays well under 200", dfa.NumStates)
	}
	if len(dfa.Accept) != int(dfa.NumStates) {
		t.Errorf("accept array has %d entries for %d states", len(dfa.Accept), dfa.NumStates)
	}
	if len(dfa.Transitions) != int(dfa.NumStates)*numCharClasses {
		t.Errorf("transition table has %d entries, want %d",
			len(dfa.Transitions), int(dfa.NumStates)*numCharClasses)
	}
	// Every transition targets a real state or the dead state.
	for i, tr := range dfa.Transitions {
		if tr != deadState && tr >= dfa.NumStates {
			t.Fatalf("transition %d targets state %d of %d", i, tr, dfa.NumStates)
		}
	}
}

func TestParametricDFA_SerializeRoundTrip(t *testing.T) {
	dfa := BuildParametricDFA(true)
	buf := dfa.encode(nil)

	restored, err := decodeParametricDFA(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if restored.NumStates != dfa.NumStates {
		t.Errorf("NumStates = %d, want %d", restored.NumStates, dfa.NumStates)
	}
	if restored.WithTranspositions != dfa.WithTranspositions {
		t.Error("transposition flag lost")
	}
	for i := range dfa.Accept {
		if restored.Accept[i] != dfa.Accept[i] {
			t.Fatalf("accept[%d] differs", i)
		}
	}
	for i := range dfa.Transitions {
		if restored.Transitions[i] != dfa.Transitions[i] {
			t.Fatalf("transitions[%d] differs", i)
		}
	}
}

func TestParametricDFA_DecodeRejectsWrongK(t *testing.T) {
	dfa := BuildParametricDFA(true)
	buf := dfa.encode(nil)
	buf[2] = 3 // claim k=3

	if _, err := decodeParametricDFA(buf); err == nil {
		t.Error("k=3 should be rejected")
	}
}

func TestParametricDFA_DecodeRejectsShortArrays(t *testing.T) {
	dfa := BuildParametricDFA(true)
	buf := dfa.encode(nil)

	if _, err := decodeParametricDFA(buf[:len(buf)-3]); err == nil {
		t.Error("truncated transition table should be rejected")
	}
	if _, err := decodeParametricDFA(buf[:9]); err == nil {
		t.Error("truncated accept array should be rejected")
	}
	if _, err := decodeParametricDFA(buf[:4]); err == nil {
		t.Error("truncated header should be rejected")
	}
}

func TestQueryMatcher_ExactMatch(t *testing.T) {
	dfa := BuildParametricDFA(true)
	matcher := NewQueryMatcher(dfa, "hello")

	if d, ok := matcher.Matches("hello"); !ok || d != 0 {
		t.Errorf("Matches(hello) = %d, %v; want 0, true", d, ok)
	}
	if _, ok := matcher.Matches("world"); ok {
		t.Error("Matches(world) should reject")
	}
}

func TestQueryMatcher_OneEdit(t *testing.T) {
	dfa := BuildParametricDFA(true)
	matcher := NewQueryMatcher(dfa, "hello")

	tests := []struct {
		term string
		want uint8
	}{
		{"hallo", 1},  // substitution
		{"helloo", 1}, // insertion
		{"helo", 1},   // deletion
		{"hllo", 1},
		{"helllo", 1},
	}
	for _, tt := range tests {
		if d, ok := matcher.Matches(tt.term); !ok || d != tt.want {
			t.Errorf("Matches(%q) = %d, %v; want %d, true", tt.term, d, ok, tt.want)
		}
	}
}

func TestQueryMatcher_Transposition(t *testing.T) {
	dfa := BuildParametricDFA(true)
	matcher := NewQueryMatcher(dfa, "hello")

	// "hlelo" swaps e and l: one Damerau edit.
	if d, ok := matcher.Matches("hlelo"); !ok || d != 1 {
		t.Errorf("Matches(hlelo) = %d, %v; want 1, true", d, ok)
	}
}

func TestQueryMatcher_TooManyEdits(t *testing.T) {
	dfa := BuildParametricDFA(true)
	matcher := NewQueryMatcher(dfa, "hello")

	for _, term := range []string{"xxxxx", "h", "helloooo", ""} {
		if _, ok := matcher.Matches(term); ok {
			t.Errorf("Matches(%q) should reject", term)
		}
	}
}

func TestQueryMatcher_ProgrammingTypo(t *testing.T) {
	dfa := BuildParametricDFA(true)
	matcher := NewQueryMatcher(dfa, "progamming") // missing an r

	d, ok := matcher.Matches("programming")
	if !ok || d != 1 {
		t.Errorf("Matches(programming) = %d, %v; want 1, true", d, ok)
	}
}

// naiveDamerau is the reference distance for the soundness sweep:
// unrestricted edits plus adjacent transposition, no banding, no shortcuts.
func naiveDamerau(a, b string) int {
	ar, br := []rune(a), []rune(b)
	m, n := len(ar), len(br)
	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			best := d[i-1][j-1] + cost
			if v := d[i-1][j] + 1; v < best {
				best = v
			}
			if v := d[i][j-1] + 1; v < best {
				best = v
			}
			if i > 1 && j > 1 && ar[i-1] == br[j-2] && ar[i-2] == br[j-1] {
				if v := d[i-2][j-2] + 1; v < best {
					best = v
				}
			}
			d[i][j] = best
		}
	}
	return d[m][n]
}

func TestQueryMatcher_SoundnessAgainstReference(t *testing.T) {
	// Matches(t) = (d, true) ⇔ Damerau(q, t) = d ≤ 2, over random word pairs.
	dfa := BuildParametricDFA(true)
	rng := rand.New(rand.NewSource(99))
	alphabet := "abcd" // small alphabet keeps distances interesting

	randWord := func() string {
		n := rng.Intn(8) + 1
		b := make([]byte, n)
		for i := range b {
			b[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return string(b)
	}

	for trial := 0; trial < 2000; trial++ {
		q, term := randWord(), randWord()
		matcher := NewQueryMatcher(dfa, q)

		want := naiveDamerau(q, term)
		got, ok := matcher.Matches(term)

		if want <= maxEditDistance {
			if !ok || int(got) != want {
				t.Fatalf("Matches(%q→%q) = %d, %v; reference distance %d", q, term, got, ok, want)
			}
		} else if ok {
			t.Fatalf("Matches(%q→%q) accepted at %d; reference distance %d", q, term, got, want)
		}
	}
}

func TestFuzzySearchVocabulary(t *testing.T) {
	dfa := BuildParametricDFA(true)
	vocabulary := []string{"cat", "category", "dog", "photo", "photos", "rat"}

	matches := fuzzySearchVocabulary(vocabulary, dfa, "cat", maxEditDistance)

	byOrd := map[uint32]uint8{}
	for _, m := range matches {
		byOrd[m.TermOrd] = m.Distance
	}
	if d, ok := byOrd[0]; !ok || d != 0 {
		t.Errorf("cat should match at distance 0, got %d, %v", d, ok)
	}
	if d, ok := byOrd[5]; !ok || d != 1 {
		t.Errorf("rat should match at distance 1, got %d, %v", d, ok)
	}
	if _, ok := byOrd[1]; ok {
		t.Error("category should not match within distance 2")
	}

	// Sorted by distance, then ordinal.
	for i := 1; i < len(matches); i++ {
		if matches[i].Distance < matches[i-1].Distance {
			t.Fatal("matches not sorted by distance")
		}
		if matches[i].Distance == matches[i-1].Distance && matches[i].TermOrd <= matches[i-1].TermOrd {
			t.Fatal("matches not sorted by ordinal within a distance")
		}
	}
}

func TestFuzzySearchVocabulary_EmptyInputs(t *testing.T) {
	dfa := BuildParametricDFA(true)
	if m := fuzzySearchVocabulary(nil, dfa, "query", 2); m != nil {
		t.Error("empty vocabulary should yield nil")
	}
	if m := fuzzySearchVocabulary([]string{"term"}, dfa, "", 2); m != nil {
		t.Error("empty query should yield nil")
	}
}
