// ═══════════════════════════════════════════════════════════════════════════════
// TEXT ANALYSIS
// ═══════════════════════════════════════════════════════════════════════════════
// Two very different consumers share this file:
//
// BUILD TIME — the indexer runs the full pipeline over document text:
//
//	1. Tokenization   → split on non-letter/non-digit runes
//	2. Lowercasing    → normalize case ("Quick" → "quick")
//	3. Stopword removal (optional, off by default)
//	4. Length filtering (optional)
//	5. Stemming       (optional, off by default; Snowball/Porter2)
//
// Stopwords and stemming default OFF because the query side deliberately
// does neither: a searcher typing "programming" must hit the vocabulary
// entry "programming", not a stemmed "program". Corpora that want the
// smaller index can opt in, accepting that their front end must stem
// queries the same way.
//
// QUERY TIME — normalization is exactly lowercase + whitespace split. It
// runs on every keystroke, so the lowercase path has an ASCII fast path
// that byte-copies and only falls back to full Unicode lowering when it
// meets a non-ASCII byte.
// ═══════════════════════════════════════════════════════════════════════════════

package sift

import (
	"strings"
	"unicode"
	"unicode/utf8"

	snowballeng "github.com/kljensen/snowball/english"
)

// AnalyzerConfig controls the build-time analysis pipeline.
type AnalyzerConfig struct {
	MinTokenLength  int  // minimum token length to keep
	EnableStemming  bool // apply Snowball stemming
	EnableStopwords bool // drop common English words
}

// DefaultAnalyzerConfig returns the configuration the default index build
// uses: every token survives, unstemmed, so query-time exact match works
// without a query-side stemmer.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		MinTokenLength:  1,
		EnableStemming:  false,
		EnableStopwords: false,
	}
}

// Analyze runs the default pipeline over text.
func Analyze(text string) []string {
	return AnalyzeWithConfig(text, DefaultAnalyzerConfig())
}

// AnalyzeWithConfig runs the pipeline with explicit settings.
//
// Example:
//
//	config := AnalyzerConfig{MinTokenLength: 3, EnableStemming: true}
//	tokens := AnalyzeWithConfig("The quick brown fox", config)
func AnalyzeWithConfig(text string, config AnalyzerConfig) []string {
	tokens := tokenize(text)
	tokens = lowercaseFilter(tokens)

	if config.EnableStopwords {
		tokens = stopwordFilter(tokens)
	}

	if config.MinTokenLength > 1 {
		tokens = lengthFilter(tokens, config.MinTokenLength)
	}

	if config.EnableStemming {
		tokens = stemmerFilter(tokens)
	}

	return tokens
}

// tokenize splits text into words on any rune that is not a letter or a
// number.
//
// Examples:
//
//	"hello-world"    → ["hello", "world"]
//	"price: $9.99"   → ["price", "9", "99"]
//	"café"           → ["café"]
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// lowercaseFilter normalizes token casing.
func lowercaseFilter(tokens []string) []string {
	r := make([]string, len(tokens))
	for i, token := range tokens {
		r[i] = lowercaseASCII(token)
	}
	return r
}

// stopwordFilter removes common English words that don't add search value.
func stopwordFilter(tokens []string) []string {
	r := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !isStopword(token) {
			r = append(r, token)
		}
	}
	return r
}

// lengthFilter removes tokens shorter than minLength bytes.
func lengthFilter(tokens []string, minLength int) []string {
	r := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) >= minLength {
			r = append(r, token)
		}
	}
	return r
}

// stemmerFilter reduces words to their root form with the Snowball
// (Porter2) stemmer.
//
// Example:
//
//	["running", "quickly", "foxes"] → ["run", "quick", "fox"]
func stemmerFilter(tokens []string) []string {
	r := make([]string, len(tokens))
	for i, token := range tokens {
		r[i] = snowballeng.Stem(token, false)
	}
	return r
}

// ═══════════════════════════════════════════════════════════════════════════════
// QUERY NORMALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

// lowercaseASCII lowercases s, byte-at-a-time while the input stays ASCII.
//
// The fast path allocates once and never consults the Unicode tables; a
// single non-ASCII byte falls back to strings.ToLower for correctness.
// Pure-ASCII strings that are already lowercase come back unchanged with no
// allocation at all.
func lowercaseASCII(s string) string {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x80 {
			return strings.ToLower(s)
		}
		if c >= 'A' && c <= 'Z' {
			// First uppercase byte: copy what we've scanned and lower the rest.
			b := make([]byte, len(s))
			copy(b, s[:i])
			for j := i; j < len(s); j++ {
				cj := s[j]
				if cj >= 0x80 {
					return strings.ToLower(s)
				}
				if cj >= 'A' && cj <= 'Z' {
					cj += 'a' - 'A'
				}
				b[j] = cj
			}
			return string(b)
		}
	}
	return s
}

// splitQueryTerms normalizes a raw query into lowercase terms: lowercase,
// split on ASCII whitespace, drop empties. A query that is not valid UTF-8
// yields no terms. This IS the whole query-time pipeline; see the file
// comment for why it does not stem.
func splitQueryTerms(query string) []string {
	if !utf8.ValidString(query) {
		return nil
	}
	lowered := lowercaseASCII(query)
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\f' || r == '\r'
	})
}

// isStopword checks membership in the English stopword set.
func isStopword(token string) bool {
	_, exists := englishStopwords[token]
	return exists
}

// englishStopwords is the build-time exclusion list: articles,
// prepositions, conjunctions, pronouns, auxiliaries, and number words.
// Values are struct{} so the set costs only its keys.
var englishStopwords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "across": {}, "after": {},
	"afterwards": {}, "again": {}, "against": {}, "all": {}, "almost": {},
	"alone": {}, "along": {}, "already": {}, "also": {}, "although": {},
	"always": {}, "am": {}, "among": {}, "amongst": {}, "amount": {},
	"an": {}, "and": {}, "another": {}, "any": {}, "anyhow": {},
	"anyone": {}, "anything": {}, "anyway": {}, "anywhere": {}, "are": {},
	"around": {}, "as": {}, "at": {}, "back": {}, "be": {},
	"became": {}, "because": {}, "become": {}, "becomes": {}, "becoming": {},
	"been": {}, "before": {}, "beforehand": {}, "behind": {}, "being": {},
	"below": {}, "beside": {}, "besides": {}, "between": {}, "beyond": {},
	"both": {}, "bottom": {}, "but": {}, "by": {}, "call": {},
	"can": {}, "cannot": {}, "could": {}, "do": {}, "done": {},
	"down": {}, "due": {}, "during": {}, "each": {}, "eight": {},
	"either": {}, "eleven": {}, "else": {}, "elsewhere": {}, "empty": {},
	"enough": {}, "etc": {}, "even": {}, "ever": {}, "every": {},
	"everyone": {}, "everything": {}, "everywhere": {}, "except": {}, "few": {},
	"fifteen": {}, "fifty": {}, "first": {}, "five": {}, "for": {},
	"former": {}, "formerly": {}, "forty": {}, "four": {}, "from": {},
	"front": {}, "full": {}, "further": {}, "get": {}, "give": {},
	"go": {}, "had": {}, "has": {}, "have": {}, "he": {},
	"hence": {}, "her": {}, "here": {}, "hereafter": {}, "hereby": {},
	"herein": {}, "hereupon": {}, "hers": {}, "herself": {}, "him": {},
	"himself": {}, "his": {}, "how": {}, "however": {}, "hundred": {},
	"if": {}, "in": {}, "indeed": {}, "into": {}, "is": {},
	"it": {}, "its": {}, "itself": {}, "keep": {}, "last": {},
	"latter": {}, "latterly": {}, "least": {}, "less": {}, "made": {},
	"many": {}, "may": {}, "me": {}, "meanwhile": {}, "might": {},
	"mine": {}, "more": {}, "moreover": {}, "most": {}, "mostly": {},
	"much": {}, "must": {}, "my": {}, "myself": {}, "namely": {},
	"neither": {}, "never": {}, "nevertheless": {}, "next": {}, "nine": {},
	"no": {}, "nobody": {}, "none": {}, "noone": {}, "nor": {},
	"not": {}, "nothing": {}, "now": {}, "nowhere": {}, "of": {},
	"off": {}, "often": {}, "on": {}, "once": {}, "one": {},
	"only": {}, "onto": {}, "or": {}, "other": {}, "others": {},
	"otherwise": {}, "our": {}, "ours": {}, "ourselves": {}, "out": {},
	"over": {}, "own": {}, "per": {}, "perhaps": {}, "please": {},
	"put": {}, "rather": {}, "same": {}, "seem": {}, "seemed": {},
	"seeming": {}, "seems": {}, "several": {}, "she": {}, "should": {},
	"since": {}, "six": {}, "sixty": {}, "so": {}, "some": {},
	"somehow": {}, "someone": {}, "something": {}, "sometime": {}, "sometimes": {},
	"somewhere": {}, "still": {}, "such": {}, "take": {}, "ten": {},
	"than": {}, "that": {}, "the": {}, "their": {}, "them": {},
	"themselves": {}, "then": {}, "thence": {}, "there": {}, "thereafter": {},
	"thereby": {}, "therefore": {}, "therein": {}, "thereupon": {}, "these": {},
	"they": {}, "third": {}, "this": {}, "those": {}, "though": {},
	"three": {}, "through": {}, "throughout": {}, "thru": {}, "thus": {},
	"to": {}, "together": {}, "too": {}, "toward": {}, "towards": {},
	"twelve": {}, "twenty": {}, "two": {}, "under": {}, "until": {},
	"up": {}, "upon": {}, "us": {}, "very": {}, "via": {},
	"was": {}, "we": {}, "well": {}, "were": {}, "what": {},
	"whatever": {}, "when": {}, "whence": {}, "whenever": {}, "where": {},
	"whereafter": {}, "whereas": {}, "whereby": {}, "wherein": {}, "whereupon": {},
	"wherever": {}, "whether": {}, "which": {}, "while": {}, "whither": {},
	"who": {}, "whoever": {}, "whole": {}, "whom": {}, "whose": {},
	"why": {}, "will": {}, "with": {}, "within": {}, "without": {},
	"would": {}, "yet": {}, "you": {}, "your": {}, "yours": {},
	"yourself": {}, "yourselves": {},
}
