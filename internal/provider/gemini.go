package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"codeberg.org/lexiread/lexiread/internal/errs"
)

// Gemini implements Provider over the Google Gemini API.
type Gemini struct {
	apiKey string
	model  string

	clientMu sync.Mutex
	client   *genai.Client
}

// NewGemini creates a Gemini provider. The client connects lazily on the
// first call so construction never needs a network.
func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Gemini{apiKey: apiKey, model: model}
}

// Name returns the service name used by the degradation selector.
func (g *Gemini) Name() string { return ServiceGemini }

// connect builds the client on first use. Callers run concurrently, so the
// lazy construction is serialized; a failed construction is retried on the
// next call.
func (g *Gemini) connect(ctx context.Context) (*genai.Client, error) {
	g.clientMu.Lock()
	defer g.clientMu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini client error: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", errs.New(errs.KindInvalidAPIKey, "Gemini API key not configured", false)
	}
	client, err := g.connect(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errs.New(errs.KindProcessingFailed, "empty Gemini response", true)
	}
	return text, nil
}

// DetectLanguage returns the ISO 639-1 code of the text's language.
func (g *Gemini) DetectLanguage(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf("Identify the language of the following text. Respond with only the two-letter ISO 639-1 code, nothing else.\n\n%s", clip(text, 500))
	code, err := g.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.ToLower(code), nil
}

// Summarize produces a summary of the text.
func (g *Gemini) Summarize(ctx context.Context, text string, opts SummarizeOptions) (string, error) {
	limit := opts.MaxWords
	if limit <= 0 {
		limit = 150
	}
	prompt := fmt.Sprintf("Summarize the following text in at most %d words.", limit)
	if opts.Language != "" {
		prompt += fmt.Sprintf(" Write the summary in %s.", opts.Language)
	}
	return g.generate(ctx, prompt+"\n\n"+text)
}

// Rewrite rewrites the text at the given difficulty level 1-10.
func (g *Gemini) Rewrite(ctx context.Context, text string, difficulty int) (string, error) {
	if difficulty < 1 || difficulty > 10 {
		return "", errs.New(errs.KindInvalidInput, fmt.Sprintf("difficulty %d out of range 1-10", difficulty), false)
	}
	prompt := fmt.Sprintf("Rewrite the following text for a language learner at difficulty level %d on a scale of 1 (very simple) to 10 (native, advanced). Keep the meaning intact. Respond with only the rewritten text.\n\n%s", difficulty, text)
	return g.generate(ctx, prompt)
}

// Translate translates text between languages.
func (g *Gemini) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	prompt := fmt.Sprintf("Translate the following text from %s to %s. Respond with only the translation, nothing else.\n\n%s", sourceLang, targetLang, text)
	return g.generate(ctx, prompt)
}

// AnalyzeVocabulary analyzes the given words in their source context.
func (g *Gemini) AnalyzeVocabulary(ctx context.Context, words []string, textContext string) ([]WordAnalysis, error) {
	if len(words) == 0 {
		return nil, nil
	}
	prompt := fmt.Sprintf(`Analyze these words as they are used in the given context: %s

Context:
%s

Respond with only a JSON array, one object per word, with fields:
"word", "difficulty" (integer 1-10), "definition", "examples" (array of strings), "part_of_speech", "frequency" ("common", "uncommon" or "rare").`,
		strings.Join(words, ", "), clip(textContext, 2000))

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var analyses []WordAnalysis
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &analyses); err != nil {
		return nil, errs.New(errs.KindProcessingFailed, "unparseable vocabulary response: "+err.Error(), true)
	}
	return analyses, nil
}
