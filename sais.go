package sift

// ═══════════════════════════════════════════════════════════════════════════════
// SA-IS: Linear-Time Suffix Array Construction
// ═══════════════════════════════════════════════════════════════════════════════
// The vocabulary suffix array is built with SA-IS (suffix array by induced
// sorting), which runs in O(n) over the concatenated vocabulary bytes.
//
// THE IDEA IN FOUR STEPS:
// -----------------------
// 1. Classify every suffix as S-type (smaller than its right neighbor) or
//    L-type (larger). Ties inherit the neighbor's class.
// 2. The leftmost S-type positions (LMS) chop the text into substrings that
//    can be sorted by induced sorting alone.
// 3. If two LMS substrings collide, recurse on a reduced text whose
//    alphabet is the LMS substring ranks.
// 4. Induce the full order: place LMS suffixes, sweep left-to-right to
//    place L-types, sweep right-to-left to place S-types.
//
// EXAMPLE (text "banana$", $ = sentinel):
// ---------------------------------------
//	suffixes sorted: $  a$  ana$  anana$  banana$  na$  nana$
//	suffix array:    6  5   3     1       0        4    2
//
// The implementation below works over an int slice so the recursion can
// reuse it with rank alphabets larger than a byte.
// ═══════════════════════════════════════════════════════════════════════════════

// saisSuffixArray returns the suffix array of text over the alphabet
// [0, alphabetSize). The text must not be empty; position values are
// indexes into text.
func saisSuffixArray(text []int, alphabetSize int) []int {
	n := len(text)
	sa := make([]int, n)
	switch n {
	case 0:
		return sa
	case 1:
		sa[0] = 0
		return sa
	case 2:
		if text[0] < text[1] {
			sa[0], sa[1] = 0, 1
		} else {
			sa[0], sa[1] = 1, 0
		}
		return sa
	}
	sais(text, sa, alphabetSize)
	return sa
}

// sais fills sa with the suffix array of text.
func sais(text []int, sa []int, alphabetSize int) {
	n := len(text)

	// STEP 1: classify suffixes. sType[i] == true means suffix i is S-type.
	sType := make([]bool, n)
	sType[n-1] = true
	for i := n - 2; i >= 0; i-- {
		if text[i] < text[i+1] {
			sType[i] = true
		} else if text[i] == text[i+1] {
			sType[i] = sType[i+1]
		}
	}

	isLMS := func(i int) bool {
		return i > 0 && i < n && sType[i] && !sType[i-1]
	}

	// Bucket sizes per character.
	buckets := make([]int, alphabetSize)
	for _, c := range text {
		buckets[c]++
	}
	bucketHeads := func() []int {
		heads := make([]int, alphabetSize)
		sum := 0
		for c, cnt := range buckets {
			heads[c] = sum
			sum += cnt
		}
		return heads
	}
	bucketTails := func() []int {
		tails := make([]int, alphabetSize)
		sum := 0
		for c, cnt := range buckets {
			sum += cnt
			tails[c] = sum - 1
		}
		return tails
	}

	const empty = -1
	clear := func() {
		for i := range sa {
			sa[i] = empty
		}
	}

	// induce runs the two induced-sorting sweeps assuming LMS suffixes (or
	// approximations of them) are already placed at bucket tails.
	induce := func() {
		// Left-to-right: place L-type suffixes at bucket heads.
		heads := bucketHeads()
		for i := 0; i < n; i++ {
			j := sa[i]
			if j <= 0 || j == empty {
				continue
			}
			if !sType[j-1] {
				c := text[j-1]
				sa[heads[c]] = j - 1
				heads[c]++
			}
		}
		// Right-to-left: place S-type suffixes at bucket tails.
		tails := bucketTails()
		for i := n - 1; i >= 0; i-- {
			j := sa[i]
			if j <= 0 || j == empty {
				continue
			}
			if sType[j-1] {
				c := text[j-1]
				sa[tails[c]] = j - 1
				tails[c]--
			}
		}
	}

	// STEP 2: place LMS suffixes in text order at bucket tails and induce a
	// first-pass ordering.
	clear()
	tails := bucketTails()
	lmsPositions := make([]int, 0, n/2)
	for i := 1; i < n; i++ {
		if isLMS(i) {
			lmsPositions = append(lmsPositions, i)
			c := text[i]
			sa[tails[c]] = i
			tails[c]--
		}
	}
	induce()

	// STEP 3: name LMS substrings in their induced order; equal substrings
	// share a name, forcing a recursion.
	lmsCount := len(lmsPositions)
	lmsOrder := make([]int, 0, lmsCount)
	for _, j := range sa {
		if j != empty && isLMS(j) {
			lmsOrder = append(lmsOrder, j)
		}
	}

	names := make([]int, n)
	for i := range names {
		names[i] = empty
	}
	currentName := 0
	if lmsCount > 0 {
		names[lmsOrder[0]] = 0
	}
	lmsEqual := func(a, b int) bool {
		for k := 0; ; k++ {
			aEnd := isLMS(a + k)
			bEnd := isLMS(b + k)
			if k > 0 && aEnd && bEnd {
				return true
			}
			if aEnd != bEnd || a+k >= n || b+k >= n || text[a+k] != text[b+k] {
				return false
			}
		}
	}
	for i := 1; i < lmsCount; i++ {
		if !lmsEqual(lmsOrder[i-1], lmsOrder[i]) {
			currentName++
		}
		names[lmsOrder[i]] = currentName
	}

	// Reduced text: LMS substring names in text order.
	reduced := make([]int, 0, lmsCount)
	reducedPos := make([]int, 0, lmsCount)
	for i := 1; i < n; i++ {
		if names[i] != empty {
			reduced = append(reduced, names[i])
			reducedPos = append(reducedPos, i)
		}
	}

	var lmsSorted []int
	if currentName+1 == lmsCount {
		// All names distinct: the reduced order is immediate.
		lmsSorted = make([]int, lmsCount)
		for i, name := range reduced {
			lmsSorted[name] = reducedPos[i]
		}
	} else {
		// Recurse on the reduced text.
		reducedSA := saisSuffixArray(reduced, currentName+1)
		lmsSorted = make([]int, lmsCount)
		for i, r := range reducedSA {
			lmsSorted[i] = reducedPos[r]
		}
	}

	// STEP 4: place the now-sorted LMS suffixes and induce the final order.
	clear()
	tails = bucketTails()
	for i := lmsCount - 1; i >= 0; i-- {
		j := lmsSorted[i]
		c := text[j]
		sa[tails[c]] = j
		tails[c]--
	}
	induce()
}
