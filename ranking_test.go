package sift

import "testing"

// ═══════════════════════════════════════════════════════════════════════════════
// RANKING TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestCompareResults_TitleBeatsSectionDespiteScore(t *testing.T) {
	title := makeResult(0, 50, MatchTitle)
	section := makeResult(1, 100, MatchSection)

	if !compareResults(&title, &section, nil) {
		t.Error("title at 50 must outrank section at 100")
	}
	if compareResults(&section, &title, nil) {
		t.Error("comparison must be asymmetric")
	}
}

func TestCompareResults_FullBucketHierarchy(t *testing.T) {
	order := []MatchType{MatchTitle, MatchSection, MatchSubsection, MatchSubsubsection, MatchContent}
	for i := 0; i < len(order)-1; i++ {
		better := makeResult(0, 1, order[i])
		worse := makeResult(1, 1e6, order[i+1])
		if !compareResults(&better, &worse, nil) {
			t.Errorf("%v at score 1 must outrank %v at 1e6", order[i], order[i+1])
		}
	}
}

func TestCompareResults_ScoreWithinBucket(t *testing.T) {
	high := makeResult(0, 100, MatchSection)
	low := makeResult(1, 50, MatchSection)

	if !compareResults(&high, &low, nil) {
		t.Error("higher score wins within a bucket")
	}
}

func TestCompareResults_TitleTiebreak(t *testing.T) {
	docs := []Document{{Title: "zebra"}, {Title: "apple"}}
	a := makeResult(0, 10, MatchContent)
	b := makeResult(1, 10, MatchContent)

	// Same bucket, same score: byte-lex title ascending.
	if !compareResults(&b, &a, docs) {
		t.Error("apple should sort before zebra")
	}
}

func TestCompareResults_DocIDTiebreak(t *testing.T) {
	docs := []Document{{Title: "same"}, {Title: "same"}}
	a := makeResult(0, 10, MatchContent)
	b := makeResult(1, 10, MatchContent)

	if !compareResults(&a, &b, docs) {
		t.Error("lower doc id breaks the final tie")
	}
}

func TestMatchTypeFromHeadingLevel(t *testing.T) {
	tests := []struct {
		level uint8
		want  MatchType
	}{
		{0, MatchContent}, // content
		{1, MatchTitle},   // document title / h1
		{2, MatchSection},
		{3, MatchSubsection},
		{4, MatchSubsubsection},
		{5, MatchContent}, // h5/h6 rank with content
		{6, MatchContent},
	}
	for _, tt := range tests {
		if got := matchTypeFromHeadingLevel(tt.level); got != tt.want {
			t.Errorf("level %d → %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSortResults_Truncates(t *testing.T) {
	results := []SearchResult{
		makeResult(0, 1, MatchContent),
		makeResult(1, 2, MatchContent),
		makeResult(2, 3, MatchContent),
	}
	sorted := sortResults(results, 2, nil)
	if len(sorted) != 2 {
		t.Fatalf("got %d results, want 2", len(sorted))
	}
	if sorted[0].DocID != 2 {
		t.Errorf("best result doc %d, want 2", sorted[0].DocID)
	}
}
