package sift

import (
	"strings"
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ANALYZER TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestAnalyze_DefaultKeepsEveryWord(t *testing.T) {
	// The default pipeline lowercases and tokenizes, nothing more: stemming
	// or stopword removal would break query-time exact match.
	got := Analyze("The Quick Brown Fox Jumps")
	want := []string{"the", "quick", "brown", "fox", "jumps"}

	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAnalyze_SplitsOnPunctuation(t *testing.T) {
	got := Analyze("hello-world, user@example.com!")
	want := []string{"hello", "world", "user", "example", "com"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAnalyzeWithConfig_Stopwords(t *testing.T) {
	config := AnalyzerConfig{MinTokenLength: 1, EnableStopwords: true}
	got := AnalyzeWithConfig("the quick brown fox and the lazy dog", config)

	for _, token := range got {
		if token == "the" || token == "and" {
			t.Errorf("stopword %q survived the filter", token)
		}
	}
	if len(got) != 5 { // quick brown fox lazy dog
		t.Errorf("got %v, want 5 tokens", got)
	}
}

func TestAnalyzeWithConfig_Stemming(t *testing.T) {
	config := AnalyzerConfig{MinTokenLength: 1, EnableStemming: true}
	got := AnalyzeWithConfig("running quickly foxes", config)
	want := []string{"run", "quick", "fox"}

	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAnalyzeWithConfig_LengthFilter(t *testing.T) {
	config := AnalyzerConfig{MinTokenLength: 3}
	got := AnalyzeWithConfig("a go cat no i yes", config)

	for _, token := range got {
		if len(token) < 3 {
			t.Errorf("short token %q survived", token)
		}
	}
}

func TestLowercaseASCII(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"already lower", "already lower"},
		{"MIXED Case Text", "mixed case text"},
		{"ALLCAPS", "allcaps"},
		{"numb3rs AND symbols!", "numb3rs and symbols!"},
		{"Café", "café"},       // falls back to Unicode lowering
		{"ÉCOLE", "école"},     // non-ASCII uppercase
		{"hello WORLD Ω", "hello world ω"},
	}
	for _, tt := range tests {
		if got := lowercaseASCII(tt.in); got != tt.want {
			t.Errorf("lowercaseASCII(%q) = %q, want %q", tt.in, got, tt.want)
		}
		// Must always agree with the stdlib on the final value.
		if got := lowercaseASCII(tt.in); got != strings.ToLower(tt.in) {
			t.Errorf("lowercaseASCII(%q) diverges from strings.ToLower", tt.in)
		}
	}
}

func TestSplitQueryTerms(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"Photography", []string{"photography"}},
		{"  rust   PROGRAMMING  ", []string{"rust", "programming"}},
		{"\t tabs\nand newlines ", []string{"tabs", "and", "newlines"}},
		{"", nil},
		{"   ", nil},
	}
	for _, tt := range tests {
		got := splitQueryTerms(tt.query)
		if len(got) != len(tt.want) {
			t.Errorf("splitQueryTerms(%q) = %v, want %v", tt.query, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("splitQueryTerms(%q)[%d] = %q, want %q", tt.query, i, got[i], tt.want[i])
			}
		}
	}
}

func TestSplitQueryTerms_PunctuationIsNotADelimiter(t *testing.T) {
	// Query normalization is whitespace-only; hyphenated input stays one
	// term (and simply won't match a vocabulary built by the tokenizer).
	got := splitQueryTerms("hello-world")
	if len(got) != 1 || got[0] != "hello-world" {
		t.Errorf("got %v, want [hello-world]", got)
	}
}
