package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/lexiread/lexiread/internal/errs"
)

// OpenAI implements Provider over the OpenAI chat completion API.
type OpenAI struct {
	apiKey string
	model  string
	client *openai.Client
}

// NewOpenAI creates an OpenAI provider. The model defaults to GPT-4o mini
// when empty.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		apiKey: apiKey,
		model:  model,
		client: openai.NewClient(apiKey),
	}
}

// Name returns the service name used by the degradation selector.
func (o *OpenAI) Name() string { return ServiceOpenAI }

func (o *OpenAI) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if o.apiKey == "" {
		return "", errs.New(errs.KindInvalidAPIKey, "OpenAI API key not configured", false)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errs.New(errs.KindProcessingFailed, "no completion returned", true)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// DetectLanguage returns the ISO 639-1 code of the text's language.
func (o *OpenAI) DetectLanguage(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf("Identify the language of the following text. Respond with only the two-letter ISO 639-1 code, nothing else.\n\n%s", clip(text, 500))
	code, err := o.complete(ctx, prompt, 10)
	if err != nil {
		return "", err
	}
	return strings.ToLower(code), nil
}

// Summarize produces a summary of the text.
func (o *OpenAI) Summarize(ctx context.Context, text string, opts SummarizeOptions) (string, error) {
	limit := opts.MaxWords
	if limit <= 0 {
		limit = 150
	}
	prompt := fmt.Sprintf("Summarize the following text in at most %d words.", limit)
	if opts.Language != "" {
		prompt += fmt.Sprintf(" Write the summary in %s.", opts.Language)
	}
	prompt += "\n\n" + text
	return o.complete(ctx, prompt, limit*3)
}

// Rewrite rewrites the text at the given difficulty level, 1 (simplest) to
// 10 (most advanced).
func (o *OpenAI) Rewrite(ctx context.Context, text string, difficulty int) (string, error) {
	if difficulty < 1 || difficulty > 10 {
		return "", errs.New(errs.KindInvalidInput, fmt.Sprintf("difficulty %d out of range 1-10", difficulty), false)
	}
	prompt := fmt.Sprintf("Rewrite the following text for a language learner at difficulty level %d on a scale of 1 (very simple vocabulary and short sentences) to 10 (native, advanced). Keep the meaning intact. Respond with only the rewritten text.\n\n%s", difficulty, text)
	return o.complete(ctx, prompt, 0)
}

// Translate translates text between languages.
func (o *OpenAI) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	prompt := fmt.Sprintf("Translate the following text from %s to %s. Respond with only the translation, nothing else.\n\n%s", sourceLang, targetLang, text)
	return o.complete(ctx, prompt, 0)
}

// AnalyzeVocabulary analyzes the given words in the context of the text
// they came from.
func (o *OpenAI) AnalyzeVocabulary(ctx context.Context, words []string, textContext string) ([]WordAnalysis, error) {
	if len(words) == 0 {
		return nil, nil
	}
	prompt := fmt.Sprintf(`Analyze these words as they are used in the given context: %s

Context:
%s

Respond with only a JSON array, one object per word, with fields:
"word", "difficulty" (integer 1-10), "definition", "examples" (array of strings), "part_of_speech", "frequency" ("common", "uncommon" or "rare").`,
		strings.Join(words, ", "), clip(textContext, 2000))

	raw, err := o.complete(ctx, prompt, 0)
	if err != nil {
		return nil, err
	}

	var analyses []WordAnalysis
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &analyses); err != nil {
		return nil, errs.New(errs.KindProcessingFailed, "unparseable vocabulary response: "+err.Error(), true)
	}
	return analyses, nil
}

// extractJSONArray strips markdown fences and surrounding prose that chat
// models sometimes wrap around JSON output.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
