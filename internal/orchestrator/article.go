package orchestrator

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/semaphore"

	"codeberg.org/lexiread/lexiread/internal/cache"
	"codeberg.org/lexiread/lexiread/internal/errs"
	"codeberg.org/lexiread/lexiread/internal/fingerprint"
	"codeberg.org/lexiread/lexiread/internal/progress"
	"codeberg.org/lexiread/lexiread/internal/provider"
)

// BatchState is the aggregate view of one article batch run. It is owned by
// ProcessArticle for the duration of the call; workers mutate disjoint
// chunks by index, and the loaded set is guarded separately.
type BatchState struct {
	Chunks       []*Chunk
	LoadedChunks map[string]bool
	IsProcessing bool

	mu sync.Mutex
}

func (b *BatchState) markLoaded(id string) {
	b.mu.Lock()
	b.LoadedChunks[id] = true
	b.mu.Unlock()
}

// Errors returns the typed errors of all chunks that exhausted retries.
func (b *BatchState) Errors() []*errs.Error {
	var out []*errs.Error
	for _, chunk := range b.Chunks {
		if chunk.Err != nil {
			out = append(out, chunk.Err)
		}
	}
	return out
}

// ArticleOptions tunes one article batch.
type ArticleOptions struct {
	MaxConcurrency int
	SummaryWords   int      // per-chunk summary budget, 0 for default
	Services       []string // candidate order, defaults to the registry order
	Tracker        *progress.Tracker
}

func (o *ArticleOptions) concurrency() int64 {
	if o != nil && o.MaxConcurrency > 0 {
		return int64(o.MaxConcurrency)
	}
	return DefaultMaxConcurrency
}

const defaultSummaryWords = 60

// ProcessArticle summarizes and rewrites every chunk at the given
// difficulty, merging cache hits with live provider results. Chunks run
// under bounded concurrency; a chunk whose provider calls exhaust retries
// is marked with its error and never halts its siblings. The returned state
// has IsProcessing false once every chunk has settled.
func (o *Orchestrator) ProcessArticle(ctx context.Context, chunks []*Chunk, difficulty int, opts *ArticleOptions) *BatchState {
	state := &BatchState{
		Chunks:       chunks,
		LoadedChunks: make(map[string]bool, len(chunks)),
		IsProcessing: true,
	}
	if len(chunks) == 0 {
		state.IsProcessing = false
		return state
	}

	services := o.services(opts)
	summaryWords := defaultSummaryWords
	if opts != nil && opts.SummaryWords > 0 {
		summaryWords = opts.SummaryWords
	}
	tracker := trackerOf(opts)
	tracker.Start(progress.PartMessage(1, len(chunks)))

	sem := semaphore.NewWeighted(opts.concurrency())
	var wg sync.WaitGroup

	// Serializes the completed count and its tracker update so the
	// reported current value never moves backwards.
	var progressMu sync.Mutex
	completed := 0

	for i := range chunks {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context gone: settle the remaining chunks as failed.
			for _, chunk := range chunks[i:] {
				chunk.Err = errs.Classify(err)
				chunk.Processed = true
			}
			break
		}
		wg.Add(1)
		go func(chunk *Chunk) {
			defer wg.Done()
			defer sem.Release(1)

			o.processChunk(ctx, chunk, difficulty, summaryWords, services)
			if chunk.Err == nil {
				state.markLoaded(chunk.ID)
			}
			progressMu.Lock()
			completed++
			tracker.Update(int64(completed), progress.PartMessage(completed, len(chunks)))
			progressMu.Unlock()
		}(chunks[i])
	}

	wg.Wait()
	state.IsProcessing = false
	return state
}

func (o *Orchestrator) services(opts *ArticleOptions) []string {
	if opts != nil && len(opts.Services) > 0 {
		return opts.Services
	}
	return o.registry.Candidates()
}

func trackerOf(opts *ArticleOptions) *progress.Tracker {
	if opts != nil && opts.Tracker != nil {
		return opts.Tracker
	}
	return progress.NewTracker("article", 0)
}

// processChunk settles one chunk: cache first, then a selected provider
// wrapped in the retry engine. Cache failures are treated as misses.
func (o *Orchestrator) processChunk(ctx context.Context, chunk *Chunk, difficulty, summaryWords int, services []string) {
	fp := fingerprint.Text(chunk.Content)
	summaryKey := fingerprint.Key(fp, "summary", strconv.Itoa(summaryWords))
	rewriteKey := fingerprint.Key(fp, "rewrite", strconv.Itoa(difficulty))

	if cached, ok := o.store.Get(ctx, cache.LedgerDerived, summaryKey); ok {
		chunk.Summary = string(cached)
	}
	if cached, ok := o.store.Get(ctx, cache.LedgerDerived, rewriteKey); ok {
		chunk.Rewritten = string(cached)
	}
	if chunk.Summary != "" && chunk.Rewritten != "" {
		chunk.Processed = true
		return
	}

	service, ok := o.selector.BestService(services)
	if !ok {
		chunk.Err = errs.New(errs.KindAPIUnavailable, "no AI service currently usable", true)
		chunk.Processed = true
		return
	}

	if chunk.Summary == "" {
		summary, err := callProvider(ctx, o, service, "summarize", func(ctx context.Context, p provider.Provider) (string, error) {
			return p.Summarize(ctx, chunk.Content, provider.SummarizeOptions{MaxWords: summaryWords})
		})
		if err != nil {
			chunk.Err = errs.Classify(err)
			chunk.Processed = true
			return
		}
		chunk.Summary = summary
		o.store.Put(ctx, cache.LedgerDerived, summaryKey, []byte(summary), 0)
	}

	if chunk.Rewritten == "" {
		rewritten, err := callProvider(ctx, o, service, "rewrite", func(ctx context.Context, p provider.Provider) (string, error) {
			return p.Rewrite(ctx, chunk.Content, difficulty)
		})
		if err != nil {
			chunk.Err = errs.Classify(err)
			chunk.Processed = true
			return
		}
		chunk.Rewritten = rewritten
		o.store.Put(ctx, cache.LedgerDerived, rewriteKey, []byte(rewritten), 0)
	}

	chunk.Processed = true
	o.logger.Debug().Int("order", chunk.Order).Str("service", service).Msg("chunk processed")
}
