package testutil

import (
	"context"
	"fmt"
	"sync"

	"codeberg.org/lexiread/lexiread/internal/errs"
	"codeberg.org/lexiread/lexiread/internal/provider"
)

// MockProvider mocks an AI provider service. Responses are keyed by input
// text; Errors and FailuresBeforeSuccess are keyed by operation name
// (detect, summarize, rewrite, translate, analyze). Safe for concurrent use.
type MockProvider struct {
	ServiceName string

	Summaries    map[string]string
	Rewrites     map[string]string
	Translations map[string]string
	Languages    map[string]string
	Analyses     map[string]provider.WordAnalysis

	// Errors makes every call of an operation fail.
	Errors map[string]error
	// FailuresBeforeSuccess makes the first N calls of an operation fail.
	FailuresBeforeSuccess map[string]int

	mu    sync.Mutex
	calls []string
}

// NewMockProvider creates a mock provider registered under the given
// service name.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ServiceName:           name,
		Summaries:             make(map[string]string),
		Rewrites:              make(map[string]string),
		Translations:          make(map[string]string),
		Languages:             make(map[string]string),
		Analyses:              make(map[string]provider.WordAnalysis),
		Errors:                make(map[string]error),
		FailuresBeforeSuccess: make(map[string]int),
	}
}

// Name returns the configured service name
func (m *MockProvider) Name() string { return m.ServiceName }

// Calls returns the operations invoked so far, in order
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many times the operation ran
func (m *MockProvider) CallCount(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.calls {
		if call == operation {
			count++
		}
	}
	return count
}

func (m *MockProvider) record(operation string) error {
	m.calls = append(m.calls, operation)

	if remaining, ok := m.FailuresBeforeSuccess[operation]; ok && remaining > 0 {
		m.FailuresBeforeSuccess[operation] = remaining - 1
		// Transient by construction, so retry paths get exercised.
		return errs.New(errs.KindNetwork, fmt.Sprintf("mock %s failure", operation), true)
	}

	if err, ok := m.Errors[operation]; ok {
		return err
	}

	return nil
}

// DetectLanguage mocks language detection
func (m *MockProvider) DetectLanguage(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("detect"); err != nil {
		return "", err
	}

	if code, ok := m.Languages[text]; ok {
		return code, nil
	}

	// Default detection
	return "en", nil
}

// Summarize mocks summarization
func (m *MockProvider) Summarize(ctx context.Context, text string, opts provider.SummarizeOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("summarize"); err != nil {
		return "", err
	}

	if summary, ok := m.Summaries[text]; ok {
		return summary, nil
	}

	// Default mock summary
	return fmt.Sprintf("mock summary of %s", clip(text)), nil
}

// Rewrite mocks difficulty-adjusted rewriting
func (m *MockProvider) Rewrite(ctx context.Context, text string, difficulty int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("rewrite"); err != nil {
		return "", err
	}

	if rewritten, ok := m.Rewrites[text]; ok {
		return rewritten, nil
	}

	// Default mock rewrite
	return fmt.Sprintf("mock level %d rewrite of %s", difficulty, clip(text)), nil
}

// Translate mocks translation
func (m *MockProvider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("translate"); err != nil {
		return "", err
	}

	if translation, ok := m.Translations[text]; ok {
		return translation, nil
	}

	// Default mock translation
	return fmt.Sprintf("mock %s-%s translation of %s", sourceLang, targetLang, text), nil
}

// AnalyzeVocabulary mocks vocabulary analysis. Words without a scripted
// analysis get a generic one; a word scripted with an empty Word field is
// omitted from the response entirely.
func (m *MockProvider) AnalyzeVocabulary(ctx context.Context, words []string, textContext string) ([]provider.WordAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("analyze"); err != nil {
		return nil, err
	}

	analyses := make([]provider.WordAnalysis, 0, len(words))
	for _, word := range words {
		if analysis, ok := m.Analyses[word]; ok {
			if analysis.Word == "" {
				continue
			}
			analyses = append(analyses, analysis)
			continue
		}

		analyses = append(analyses, provider.WordAnalysis{
			Word:         word,
			Difficulty:   5,
			Definition:   fmt.Sprintf("mock definition of %s", word),
			Examples:     []string{fmt.Sprintf("example with %s", word)},
			PartOfSpeech: "noun",
			Frequency:    "common",
		})
	}

	return analyses, nil
}

func clip(s string) string {
	if len(s) > 24 {
		return s[:24]
	}
	return s
}
