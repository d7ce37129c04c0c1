package provider

import (
	"context"
	"strings"

	"github.com/pemistahl/lingua-go"

	"codeberg.org/lexiread/lexiread/internal/errs"
)

// Local is the on-device provider. It detects languages with a statistical
// model and needs no network or API key, which makes it the reserved
// offline fallback for the degradation selector. Generation operations are
// out of its reach and report the service as unavailable so callers turn to
// cached content.
type Local struct {
	detector lingua.LanguageDetector
}

// NewLocal builds the local provider. Constructing the detector loads the
// language models into memory once.
func NewLocal() *Local {
	languages := []lingua.Language{
		lingua.English,
		lingua.Spanish,
		lingua.French,
		lingua.German,
		lingua.Italian,
		lingua.Portuguese,
		lingua.Dutch,
		lingua.Russian,
		lingua.Bulgarian,
		lingua.Chinese,
		lingua.Japanese,
		lingua.Korean,
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()
	return &Local{detector: detector}
}

// Name returns the reserved offline-capable service name.
func (l *Local) Name() string { return ServiceLocal }

// DetectLanguage returns the ISO 639-1 code of the text's language.
func (l *Local) DetectLanguage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errs.New(errs.KindInvalidInput, "empty text", false)
	}
	language, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return "", errs.New(errs.KindProcessingFailed, "language not recognized", false)
	}
	return strings.ToLower(language.IsoCode639_1().String()), nil
}

func (l *Local) unavailable(operation string) error {
	return errs.New(errs.KindAPIUnavailable, operation+" requires a remote AI service; only cached results are available offline", false)
}

// Summarize is not available locally.
func (l *Local) Summarize(ctx context.Context, text string, opts SummarizeOptions) (string, error) {
	return "", l.unavailable("summarization")
}

// Rewrite is not available locally.
func (l *Local) Rewrite(ctx context.Context, text string, difficulty int) (string, error) {
	return "", l.unavailable("rewriting")
}

// Translate is not available locally.
func (l *Local) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return "", l.unavailable("translation")
}

// AnalyzeVocabulary is not available locally.
func (l *Local) AnalyzeVocabulary(ctx context.Context, words []string, textContext string) ([]WordAnalysis, error) {
	return nil, l.unavailable("vocabulary analysis")
}
