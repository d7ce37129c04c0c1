package orchestrator

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"codeberg.org/lexiread/lexiread/internal/cache"
	"codeberg.org/lexiread/lexiread/internal/errs"
	"codeberg.org/lexiread/lexiread/internal/fingerprint"
	"codeberg.org/lexiread/lexiread/internal/progress"
	"codeberg.org/lexiread/lexiread/internal/provider"
)

// VocabularyRequest describes one vocabulary batch.
type VocabularyRequest struct {
	Words          []string
	Context        string // surrounding text the words were taken from
	SourceLanguage string
	TargetLanguage string
	MaxConcurrency int
	Services       []string
}

// WordError records one word whose analysis or translation failed after
// all retries.
type WordError struct {
	Word string
	Err  *errs.Error
}

// VocabularyResult is the outcome of a batch. Words that failed appear in
// Errors and are excluded from Analyses and Translations; the batch as a
// whole still succeeds for the remaining words.
type VocabularyResult struct {
	Analyses     map[string]provider.WordAnalysis
	Translations map[string]string
	Errors       []WordError
}

// ProcessVocabularyBatch deduplicates, analyzes and translates the words of
// a request. Analyses run in capped groups, translations word by word under
// bounded concurrency; every provider call goes through the retry engine.
func (o *Orchestrator) ProcessVocabularyBatch(ctx context.Context, req VocabularyRequest) *VocabularyResult {
	return o.processVocabulary(ctx, req, nil)
}

// processVocabulary runs the batch and calls onSettled as each unique word
// settles (translated, served from cache, or failed), while the batch is
// still in flight.
func (o *Orchestrator) processVocabulary(ctx context.Context, req VocabularyRequest, onSettled func(word string)) *VocabularyResult {
	result := &VocabularyResult{
		Analyses:     make(map[string]provider.WordAnalysis),
		Translations: make(map[string]string),
	}
	words := dedupe(req.Words)
	if len(words) == 0 {
		return result
	}

	services := req.Services
	if len(services) == 0 {
		services = o.registry.Candidates()
	}

	var mu sync.Mutex
	fail := func(word string, err error) {
		typed := errs.Classify(err)
		// Per-word failures are recorded as retryable processing failures:
		// the caller may resubmit just the failed words.
		recorded := errs.New(errs.KindProcessingFailed, typed.Message, true)
		mu.Lock()
		result.Errors = append(result.Errors, WordError{Word: word, Err: recorded})
		mu.Unlock()
	}

	o.analyzeWords(ctx, words, req.Context, services, result, &mu, fail)
	o.translateWords(ctx, words, req, services, result, &mu, fail, onSettled)

	// A word is all-or-nothing: one failed operation excludes it from both
	// result maps, and it is reported once even if both operations failed.
	unique := result.Errors[:0]
	reported := make(map[string]bool, len(result.Errors))
	for _, wordErr := range result.Errors {
		delete(result.Analyses, wordErr.Word)
		delete(result.Translations, wordErr.Word)
		if !reported[wordErr.Word] {
			reported[wordErr.Word] = true
			unique = append(unique, wordErr)
		}
	}
	result.Errors = unique
	return result
}

// ProcessVocabularyWithProgress runs the same batch while driving a
// progress callback. Total equals the input word count (duplicates
// included) and the completed count only ever grows.
func (o *Orchestrator) ProcessVocabularyWithProgress(ctx context.Context, req VocabularyRequest, onProgress progress.Listener) *VocabularyResult {
	tracker := progress.NewTracker("vocabulary", int64(len(req.Words)))
	if onProgress != nil {
		tracker.OnProgress(onProgress)
	}
	tracker.Start(progress.WordMessage(0, int64(len(req.Words))))

	// Track settled unique words; duplicates count toward the total the
	// moment their unique representative settles.
	occurrences := make(map[string]int64)
	for _, word := range req.Words {
		occurrences[normalizeWord(word)]++
	}

	unique := dedupe(req.Words)
	var settled sync.Map
	wrapped := req
	wrapped.Words = unique

	result := o.processVocabulary(ctx, wrapped, func(word string) {
		key := normalizeWord(word)
		if _, loaded := settled.LoadOrStore(key, true); !loaded {
			tracker.Increment(occurrences[key])
		}
	})

	tracker.Complete()
	return result
}

func (o *Orchestrator) analyzeWords(ctx context.Context, words []string, textContext string, services []string, result *VocabularyResult, mu *sync.Mutex, fail func(string, error)) {
	for start := 0; start < len(words); start += maxVocabBatch {
		end := start + maxVocabBatch
		if end > len(words) {
			end = len(words)
		}
		group := words[start:end]

		service, ok := o.selector.BestService(services)
		if !ok {
			for _, word := range group {
				fail(word, errs.New(errs.KindAPIUnavailable, "no AI service currently usable", true))
			}
			continue
		}

		analyses, err := callProvider(ctx, o, service, "analyze-vocabulary", func(ctx context.Context, p provider.Provider) ([]provider.WordAnalysis, error) {
			return p.AnalyzeVocabulary(ctx, group, textContext)
		})
		if err != nil {
			for _, word := range group {
				fail(word, err)
			}
			continue
		}

		byWord := make(map[string]provider.WordAnalysis, len(analyses))
		for _, analysis := range analyses {
			byWord[normalizeWord(analysis.Word)] = analysis
		}
		mu.Lock()
		for _, word := range group {
			if analysis, found := byWord[normalizeWord(word)]; found {
				result.Analyses[word] = analysis
			}
		}
		mu.Unlock()
		for _, word := range group {
			if _, found := byWord[normalizeWord(word)]; !found {
				fail(word, errs.New(errs.KindProcessingFailed, "word missing from analysis response", true))
			}
		}
	}
}

func (o *Orchestrator) translateWords(ctx context.Context, words []string, req VocabularyRequest, services []string, result *VocabularyResult, mu *sync.Mutex, fail func(string, error), onSettled func(string)) {
	concurrency := int64(req.MaxConcurrency)
	if concurrency <= 0 {
		concurrency = DefaultMaxConcurrency
	}
	sem := semaphore.NewWeighted(concurrency)
	var wg sync.WaitGroup

	settled := func(word string) {
		if onSettled != nil {
			onSettled(word)
		}
	}

	for _, word := range words {
		if err := sem.Acquire(ctx, 1); err != nil {
			fail(word, err)
			settled(word)
			continue
		}
		wg.Add(1)
		go func(word string) {
			defer wg.Done()
			defer sem.Release(1)
			// Translation is the last stop for every unique word, so the
			// settlement hook fires here regardless of outcome.
			defer settled(word)

			key := fingerprint.Key(fingerprint.Text(word), "translate", req.SourceLanguage+"-"+req.TargetLanguage)
			if cached, ok := o.store.Get(ctx, cache.LedgerTranslations, key); ok {
				mu.Lock()
				result.Translations[word] = string(cached)
				mu.Unlock()
				return
			}

			service, ok := o.selector.BestService(services)
			if !ok {
				fail(word, errs.New(errs.KindAPIUnavailable, "no AI service currently usable", true))
				return
			}

			translation, err := callProvider(ctx, o, service, "translate", func(ctx context.Context, p provider.Provider) (string, error) {
				return p.Translate(ctx, word, req.SourceLanguage, req.TargetLanguage)
			})
			if err != nil {
				fail(word, err)
				return
			}

			mu.Lock()
			result.Translations[word] = translation
			mu.Unlock()
			o.store.Put(ctx, cache.LedgerTranslations, key, []byte(translation), 0)
		}(word)
	}
	wg.Wait()
}

func dedupe(words []string) []string {
	seen := make(map[string]bool, len(words))
	var unique []string
	for _, word := range words {
		key := normalizeWord(word)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, word)
	}
	return unique
}

func normalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
