package sift

// ═══════════════════════════════════════════════════════════════════════════════
// LEVENSHTEIN DFA: Precomputed Fuzzy Matching
// ═══════════════════════════════════════════════════════════════════════════════
// Tier 3 needs "is this vocabulary term within 2 edits of the query?" for
// every term, on every keystroke. Running a full dynamic program per term
// would work, but the Schulz-Mihov (2002) construction does better: build a
// UNIVERSAL automaton whose states are sets of (offset, edits) positions and
// whose alphabet is a characteristic bitmask, not a real character.
//
// The trick that makes it query-independent:
//
//	state     = which query offsets we could be at, and how many edits each
//	            path has burned (e.g. {(0,0), (1,1), (2,2)})
//	input     = 3-bit mask: does the current term character equal
//	            query[base], query[base+1], query[base+2]?
//
// Neither depends on the actual characters, so the whole transition table
// (20 states × 8 masks for k=2 with transpositions) is computed ONCE at build time and shipped
// inside the index.
//
// SERIALIZED FORM (8-byte header + two arrays):
// ---------------------------------------------
//	num_states:   u16
//	max_distance: u8   (always 2)
//	flags:        u8   (bit 0 = transpositions enabled)
//	reserved:     u32
//	accept:       num_states bytes      (distance, or 0xFF = non-accepting)
//	transitions:  num_states × 8 × u16  (next state, 0xFFFF = dead)
//
// THE MATCHER:
// ------------
// QueryMatcher wraps the automaton with one query's characters. Its
// Matches method is contract-bound: Matches(t) = (d, true) exactly when the
// Damerau-Levenshtein distance of query and t is d ≤ 2. The implementation
// runs a full-row dynamic program with a length shortcut and a row-minimum
// early exit; it does not step the DFA tables.
// ═══════════════════════════════════════════════════════════════════════════════

import "sort"

const (
	// maxEditDistance is the compile-time fuzzy radius.
	maxEditDistance = 2

	// numCharClasses is the automaton alphabet size: 2^(k+1) masks.
	numCharClasses = 8

	// deadState marks a transition with no live NFA positions.
	deadState = uint16(0xFFFF)

	// notAccepting marks a non-accepting state in the accept array.
	notAccepting = uint8(0xFF)

	// levDFAHeaderSize is the fixed serialized header size.
	levDFAHeaderSize = 8
)

// nfaPos is one live position of the underlying NFA: how far into the query
// this path has advanced relative to the moving base, and how many edits it
// has consumed.
type nfaPos struct {
	offset int8
	edits  uint8
}

// parametricState is a normalized set of NFA positions.
type parametricState struct {
	positions []nfaPos
}

// stateKey folds a normalized state into a comparable map key. Positions
// are bounded (offset 0..2k, edits 0..k) so a byte string is exact.
func (s *parametricState) key() string {
	b := make([]byte, 0, len(s.positions)*2)
	for _, p := range s.positions {
		b = append(b, byte(p.offset), p.edits)
	}
	return string(b)
}

// newParametricState sorts, deduplicates, and drops dominated positions
// (same offset, strictly more edits adds nothing).
func newParametricState(positions []nfaPos) *parametricState {
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].offset != positions[j].offset {
			return positions[i].offset < positions[j].offset
		}
		return positions[i].edits < positions[j].edits
	})
	filtered := positions[:0]
	for _, p := range positions {
		dominated := false
		for _, kept := range filtered {
			if kept.offset == p.offset && kept.edits <= p.edits {
				dominated = true
				break
			}
		}
		if !dominated {
			filtered = append(filtered, p)
		}
	}
	return &parametricState{positions: append([]nfaPos(nil), filtered...)}
}

func (s *parametricState) isEmpty() bool {
	return len(s.positions) == 0
}

// next computes the successor state for one character-class mask.
//
// Mask bit i is set when the input character equals query[base+i]. Each live
// position spawns match / substitution / insertion successors, plus a
// transposition successor when enabled, and deletion closures afterwards.
func (s *parametricState) next(charClass int, withTranspositions bool) *parametricState {
	var out []nfaPos

	for _, pos := range s.positions {
		if pos.edits > maxEditDistance {
			continue
		}

		// Match: the input character equals the query character this path is
		// looking at.
		if pos.offset >= 0 && charClass&(1<<uint(pos.offset)) != 0 {
			out = append(out, nfaPos{offset: pos.offset + 1, edits: pos.edits})
		}

		if pos.edits < maxEditDistance {
			// Substitution: consume both, one edit.
			out = append(out, nfaPos{offset: pos.offset + 1, edits: pos.edits + 1})
			// Insertion into the query: consume input only.
			out = append(out, nfaPos{offset: pos.offset, edits: pos.edits + 1})
		}

		// Transposition: the input matches the NEXT query character; a
		// following swap completes within one edit.
		if withTranspositions && pos.edits < maxEditDistance && pos.offset >= 0 {
			nextBit := int(pos.offset) + 1
			if nextBit <= maxEditDistance && charClass&(1<<uint(nextBit)) != 0 {
				out = append(out, nfaPos{offset: pos.offset, edits: pos.edits + 1})
			}
		}
	}

	// Deletion closure: skipping query characters costs an edit each and
	// consumes no input.
	withDeletions := append([]nfaPos(nil), out...)
	for _, pos := range out {
		if pos.edits < maxEditDistance {
			withDeletions = append(withDeletions, nfaPos{offset: pos.offset + 1, edits: pos.edits + 1})
			if pos.edits+1 < maxEditDistance {
				withDeletions = append(withDeletions, nfaPos{offset: pos.offset + 2, edits: pos.edits + 2})
			}
		}
	}

	return newParametricState(withDeletions)
}

// normalize rebases offsets so the smallest is 0; the subtracted amount is
// how far the matcher's moving base advances.
func (s *parametricState) normalize() *parametricState {
	if len(s.positions) == 0 {
		return s
	}
	minOffset := s.positions[0].offset
	for _, p := range s.positions[1:] {
		if p.offset < minOffset {
			minOffset = p.offset
		}
	}
	if minOffset == 0 {
		return s
	}
	rebased := make([]nfaPos, len(s.positions))
	for i, p := range s.positions {
		rebased[i] = nfaPos{offset: p.offset - minOffset, edits: p.edits}
	}
	return newParametricState(rebased)
}

// ParametricDFA is the compiled universal Levenshtein automaton.
type ParametricDFA struct {
	Accept             []uint8  // per state: distance or notAccepting
	Transitions        []uint16 // [state*numCharClasses + class] → next state
	NumStates          uint16
	WithTranspositions bool
}

// BuildParametricDFA compiles the automaton for k = 2 by breadth-first
// subset construction over parametric states.
//
// The state count is small (well under 200), so this runs in microseconds;
// indexes still ship the serialized tables so the browser never pays even
// that.
func BuildParametricDFA(withTranspositions bool) *ParametricDFA {
	var (
		states      []*parametricState
		stateIDs    = make(map[string]uint16)
		transitions []uint16
		accept      []uint8
		queue       []uint16
	)

	// Initial state: the paths that have already burned i edits to start at
	// offset i (leading deletions).
	initial := make([]nfaPos, 0, maxEditDistance+1)
	for i := uint8(0); i <= maxEditDistance; i++ {
		initial = append(initial, nfaPos{offset: int8(i), edits: i})
	}
	start := newParametricState(initial).normalize()
	states = append(states, start)
	stateIDs[start.key()] = 0
	queue = append(queue, 0)

	for len(queue) > 0 {
		stateID := queue[0]
		queue = queue[1:]
		state := states[stateID]

		// Accept distance: the fewest edits among positions with a
		// non-negative offset. Offsets are relative to the moving base, so
		// this does not check that the query has been fully consumed.
		acceptDist := notAccepting
		for _, p := range state.positions {
			if p.offset >= 0 && p.edits <= maxEditDistance && p.edits < acceptDist {
				acceptDist = p.edits
			}
		}
		accept = append(accept, acceptDist)

		for class := 0; class < numCharClasses; class++ {
			next := state.next(class, withTranspositions).normalize()
			var nextID uint16
			switch {
			case next.isEmpty():
				nextID = deadState
			default:
				if id, ok := stateIDs[next.key()]; ok {
					nextID = id
				} else {
					nextID = uint16(len(states))
					states = append(states, next)
					stateIDs[next.key()] = nextID
					queue = append(queue, nextID)
				}
			}
			transitions = append(transitions, nextID)
		}
	}

	return &ParametricDFA{
		Accept:             accept,
		Transitions:        transitions,
		NumStates:          uint16(len(states)),
		WithTranspositions: withTranspositions,
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// SERIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

// encode appends the automaton in the fixed header + two-array layout.
func (d *ParametricDFA) encode(buf []byte) []byte {
	buf = append(buf, byte(d.NumStates), byte(d.NumStates>>8))
	buf = append(buf, maxEditDistance)
	if d.WithTranspositions {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, 0, 0, 0, 0) // reserved
	buf = append(buf, d.Accept...)
	for _, t := range d.Transitions {
		buf = append(buf, byte(t), byte(t>>8))
	}
	return buf
}

// decodeParametricDFA parses and validates the serialized automaton.
//
// Validation is strict: the max distance must be 2, the accept array must
// hold exactly num_states bytes, and the transition table exactly
// num_states × 8 u16 entries.
func decodeParametricDFA(data []byte) (*ParametricDFA, error) {
	r := newByteReader(data, "levenshtein dfa")
	numStates, err := r.u16()
	if err != nil {
		return nil, err
	}
	maxK, err := r.u8()
	if err != nil {
		return nil, err
	}
	if maxK != maxEditDistance {
		return nil, &UnsupportedVersionError{Found: maxK, Expected: maxEditDistance}
	}
	flags, err := r.u8()
	if err != nil {
		return nil, err
	}
	if _, err := r.u32(); err != nil { // reserved
		return nil, err
	}

	acceptRaw, err := r.bytes(int(numStates))
	if err != nil {
		return nil, err
	}
	accept := append([]uint8(nil), acceptRaw...)

	transCount := int(numStates) * numCharClasses
	transRaw, err := r.bytes(transCount * 2)
	if err != nil {
		return nil, err
	}
	transitions := make([]uint16, transCount)
	for i := range transitions {
		transitions[i] = uint16(transRaw[2*i]) | uint16(transRaw[2*i+1])<<8
	}

	return &ParametricDFA{
		Accept:             accept,
		Transitions:        transitions,
		NumStates:          numStates,
		WithTranspositions: flags&1 != 0,
	}, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// QUERY MATCHER
// ═══════════════════════════════════════════════════════════════════════════════

// QueryMatcher binds the universal automaton to one query's characters.
//
// Construction is a few slice allocations; build one per query term, then
// call Matches against every vocabulary term.
type QueryMatcher struct {
	dfa        *ParametricDFA
	queryChars []rune
	// DP scratch rows, reused across Matches calls and regrown only when a
	// longer term arrives; the transposition row is allocated per call.
	prevRow []int
	currRow []int
}

// NewQueryMatcher wraps dfa with the query string. The dfa may be nil; the
// DP matcher does not consult the tables, they travel together so a future
// table-driven step has everything it needs.
func NewQueryMatcher(dfa *ParametricDFA, query string) *QueryMatcher {
	return &QueryMatcher{dfa: dfa, queryChars: []rune(query)}
}

// charClass computes the automaton input mask for character c at the given
// query base: bit i set when c equals query[base+i].
func (m *QueryMatcher) charClass(c rune, base int) int {
	class := 0
	for i := 0; i <= maxEditDistance; i++ {
		if base+i < len(m.queryChars) && m.queryChars[base+i] == c {
			class |= 1 << uint(i)
		}
	}
	return class
}

// Matches reports the edit distance between the query and term when it is
// at most 2, in Damerau form (transpositions count as one edit).
//
// Two shortcuts keep the vocabulary sweep fast:
//   - length gap: ||q| − |t|| > 2 can never match
//   - row minimum: once every cell of a DP row exceeds 2, no suffix can
//     recover, so the scan aborts
func (m *QueryMatcher) Matches(term string) (uint8, bool) {
	termChars := []rune(term)
	qn, tn := len(m.queryChars), len(termChars)

	lenDiff := qn - tn
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > maxEditDistance {
		return 0, false
	}

	if cap(m.prevRow) < tn+1 {
		m.prevRow = make([]int, tn+1)
		m.currRow = make([]int, tn+1)
	}
	prev := m.prevRow[:tn+1]
	curr := m.currRow[:tn+1]
	for j := 0; j <= tn; j++ {
		prev[j] = j
	}

	// prevPrev backs the transposition lookup (row i−2).
	prevPrev := make([]int, tn+1)

	for i := 0; i < qn; i++ {
		curr[0] = i + 1
		minInRow := curr[0]
		for j := 0; j < tn; j++ {
			cost := 1
			if m.queryChars[i] == termChars[j] {
				cost = 0
			}
			best := prev[j] + cost
			if d := prev[j+1] + 1; d < best {
				best = d
			}
			if d := curr[j] + 1; d < best {
				best = d
			}
			// Damerau transposition: ...ab vs ...ba.
			if i > 0 && j > 0 &&
				m.queryChars[i] == termChars[j-1] &&
				m.queryChars[i-1] == termChars[j] {
				if d := prevPrev[j-1] + 1; d < best {
					best = d
				}
			}
			curr[j+1] = best
			if best < minInRow {
				minInRow = best
			}
		}
		if minInRow > maxEditDistance {
			return 0, false
		}
		copy(prevPrev, prev)
		prev, curr = curr, prev
	}

	d := prev[tn]
	if d > maxEditDistance {
		return 0, false
	}
	return uint8(d), true
}

// fuzzySearchVocabulary runs the matcher over the whole vocabulary and
// returns matches at distance ≤ maxDistance, sorted by distance ascending
// and term ordinal ascending for determinism.
//
// Exact matches (distance 0) are included; Tier 3 filters them out because
// exact hits are Tier 1's job.
func fuzzySearchVocabulary(vocabulary []string, dfa *ParametricDFA, query string, maxDistance uint8) []FuzzyMatch {
	if len(vocabulary) == 0 || query == "" {
		return nil
	}

	matcher := NewQueryMatcher(dfa, query)
	var matches []FuzzyMatch
	for ord, term := range vocabulary {
		if d, ok := matcher.Matches(term); ok && d <= maxDistance {
			matches = append(matches, FuzzyMatch{TermOrd: uint32(ord), Distance: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].TermOrd < matches[j].TermOrd
	})
	return matches
}
