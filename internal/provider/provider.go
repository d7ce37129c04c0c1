package provider

import (
	"context"
	"sync"
)

// Service names the pipeline selects between. Local is reserved for the
// on-device provider that keeps working offline.
const (
	ServiceOpenAI = "openai"
	ServiceGemini = "gemini"
	ServiceLocal  = "local"
)

// SummarizeOptions tunes a summary request.
type SummarizeOptions struct {
	MaxWords int    // 0 means provider default
	Language string // target language code, empty keeps the source language
}

// WordAnalysis is one analyzed vocabulary term.
type WordAnalysis struct {
	Word         string   `json:"word"`
	Difficulty   int      `json:"difficulty"` // 1 (everyday) to 10 (rare/technical)
	Definition   string   `json:"definition"`
	Examples     []string `json:"examples"`
	PartOfSpeech string   `json:"part_of_speech"`
	Frequency    string   `json:"frequency"` // common, uncommon, rare
}

// Provider is the narrow interface every AI service implements. Calls may
// fail with native errors; normalization and retries happen in the
// orchestration layer, not here.
type Provider interface {
	Name() string
	DetectLanguage(ctx context.Context, text string) (string, error)
	Summarize(ctx context.Context, text string, opts SummarizeOptions) (string, error)
	Rewrite(ctx context.Context, text string, difficulty int) (string, error)
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	AnalyzeVocabulary(ctx context.Context, words []string, textContext string) ([]WordAnalysis, error)
}

// Registry maps service names to providers and keeps the caller's
// preference order for the degradation selector.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its name, appending it to the preference
// order. Registering the same name again replaces the provider in place.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Candidates returns the service names in preference order.
func (r *Registry) Candidates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
