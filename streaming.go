package sift

// ═══════════════════════════════════════════════════════════════════════════════
// PROGRESSIVE & STREAMING DELIVERY
// ═══════════════════════════════════════════════════════════════════════════════
// Search-as-you-type UIs want results as each tier lands, not after the
// slowest tier finishes. Two delivery modes compose the same tier functions:
//
// PROGRESSIVE (synchronous callbacks):
//	run T1 → onUpdate(snapshot) → run T2 → onUpdate → run T3 → onUpdate
//	→ onFinish(final)
// Each snapshot comes from a ResultMerger that is BORROWED, not consumed,
// so later tiers keep accumulating into the same state. The embedder
// decides whether to yield between callbacks; the core never blocks.
//
// STREAMING (parallel goroutines):
//	       ┌── tier 1 worker ──┐
//	query ─┼── tier 2 worker ──┼──→ raw channel ──→ dedup worker ──→ UI channel
//	       └── tier 3 worker ──┘
// The dedup worker holds results back so the embedder always sees them in
// final rank order: tier 2 results wait until tier 1 completes, tier 3
// until tier 2. Dedup is doc-id-only with replace-if-better, the same
// discipline as ResultMerger.
//
// CANCELLATION is cooperative: the embedder cancels the context (or stops
// reading); workers notice and exit. A dropped receiver is not an error.
// ═══════════════════════════════════════════════════════════════════════════════

import (
	"context"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sync/errgroup"
)

// SearchProgressive runs the tiers sequentially, invoking onUpdate with the
// deduped, ranked snapshot after each tier and onFinish with the final list.
//
// Callbacks run on the calling goroutine. Either callback may be nil.
func (s *TierSearcher) SearchProgressive(query string, limit int, options SearchOptions, onUpdate func([]SearchResult), onFinish func([]SearchResult)) {
	fire := func(f func([]SearchResult), rs []SearchResult) {
		if f != nil {
			f(rs)
		}
	}

	if query == "" || limit <= 0 {
		fire(onUpdate, nil)
		fire(onFinish, nil)
		return
	}

	merger := NewResultMerger(s.docs)
	exclude := roaring.New()

	t1 := s.SearchTier1Exact(query, limit, options)
	for _, r := range t1 {
		exclude.Add(r.DocID)
	}
	merger.MergeAll(t1)
	fire(onUpdate, merger.GetSorted(limit))

	t2 := s.SearchTier2Prefix(query, exclude, limit, options)
	for _, r := range t2 {
		exclude.Add(r.DocID)
	}
	merger.MergeAll(t2)
	fire(onUpdate, merger.GetSorted(limit))

	t3 := s.SearchTier3Fuzzy(query, exclude, limit, options)
	merger.MergeAll(t3)
	fire(onUpdate, merger.GetSorted(limit))

	fire(onFinish, merger.IntoSorted(limit))
}

// StreamMessage is one delivery on the streaming channel.
type StreamMessage struct {
	// Result is one deduped result in final rank order, when Final is nil.
	Result *SearchResult
	// Final carries the complete sorted list; it is the last message.
	Final []SearchResult
}

// rawResult is what tier workers send to the dedup worker.
type rawResult struct {
	result   SearchResult
	tierDone uint8 // nonzero marks "this tier finished", result unused
}

// SearchStreaming launches the three tier workers and the dedup worker,
// returning the channel of UI-ready messages.
//
// Results arrive already deduplicated and in bucketed rank order: every
// tier 1 result precedes every tier 2 result, which precede tier 3. The
// final message carries the complete sorted list and the channel closes.
// Cancel ctx (or abandon the channel; it is buffered enough for the final
// flush) to stop early.
func (s *TierSearcher) SearchStreaming(ctx context.Context, query string, limit int) <-chan StreamMessage {
	ui := make(chan StreamMessage, limit+8)

	if query == "" || limit <= 0 {
		ui <- StreamMessage{Final: nil}
		close(ui)
		return ui
	}

	raw := make(chan rawResult, 256)

	var workers errgroup.Group
	workers.Go(func() error { return s.streamTier(ctx, 1, query, limit, raw) })
	workers.Go(func() error { return s.streamTier(ctx, 2, query, limit, raw) })
	workers.Go(func() error { return s.streamTier(ctx, 3, query, limit, raw) })

	go func() {
		// Workers only report context cancellation; either way the raw
		// channel must close so the dedup worker drains and exits.
		_ = workers.Wait()
		close(raw)
	}()

	go s.dedupWorker(ctx, raw, ui, limit)

	return ui
}

// streamTier runs one tier without cross-tier exclusion (the dedup worker
// owns dedup in streaming mode) and forwards every result, then the
// tier-done marker.
func (s *TierSearcher) streamTier(ctx context.Context, tier uint8, query string, limit int, raw chan<- rawResult) error {
	var results []SearchResult
	none := roaring.New()
	options := DefaultSearchOptions()
	switch tier {
	case 1:
		results = s.SearchTier1Exact(query, limit, options)
	case 2:
		results = s.SearchTier2Prefix(query, none, limit, options)
	case 3:
		results = s.SearchTier3Fuzzy(query, none, limit, options)
	}

	for _, r := range results {
		select {
		case raw <- rawResult{result: r}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case raw <- rawResult{tierDone: tier}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// dedupWorker drains raw results into a doc-id-keyed buffer and emits them
// in bucketed rank order: tier 1 results as soon as tier 1 completes, tier
// 2 once tiers 1 and 2 are both done, tier 3 at the end.
func (s *TierSearcher) dedupWorker(ctx context.Context, raw <-chan rawResult, ui chan<- StreamMessage, limit int) {
	defer close(ui)

	best := make(map[uint32]SearchResult) // doc id → best result so far
	var tierDone [4]bool
	emitted := make(map[uint32]bool)
	emittedCount := 0

	// emitTier flushes buffered results of one tier in rank order.
	emitTier := func(tier uint8) bool {
		pending := make([]SearchResult, 0, len(best))
		for _, r := range best {
			if r.Tier == tier && !emitted[r.DocID] {
				pending = append(pending, r)
			}
		}
		sort.Slice(pending, func(i, j int) bool {
			return compareResults(&pending[i], &pending[j], s.docs)
		})
		for _, r := range pending {
			if emittedCount >= limit {
				return true
			}
			select {
			case ui <- StreamMessage{Result: &r}:
			case <-ctx.Done():
				return false
			}
			emitted[r.DocID] = true
			emittedCount++
		}
		return true
	}

	for in := range raw {
		if in.tierDone != 0 {
			tierDone[in.tierDone] = true
			// Bucketed emission: a tier flushes only once every better
			// tier has flushed.
			if tierDone[1] {
				if !emitTier(1) {
					return
				}
			}
			if tierDone[1] && tierDone[2] {
				if !emitTier(2) {
					return
				}
			}
			continue
		}

		r := in.result
		existing, ok := best[r.DocID]
		if !ok || compareResults(&r, &existing, s.docs) {
			best[r.DocID] = r
		}
	}

	if tierDone[1] && tierDone[2] && tierDone[3] {
		if !emitTier(3) {
			return
		}
	}

	// Final snapshot: everything retained, ranked and truncated.
	final := make([]SearchResult, 0, len(best))
	for _, r := range best {
		final = append(final, r)
	}
	final = sortResults(final, limit, s.docs)

	select {
	case ui <- StreamMessage{Final: final}:
	case <-ctx.Done():
	}
}
