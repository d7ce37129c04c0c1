package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"codeberg.org/lexiread/lexiread/internal/cache"
	"codeberg.org/lexiread/lexiread/internal/cli"
	"codeberg.org/lexiread/lexiread/internal/degrade"
	"codeberg.org/lexiread/lexiread/internal/errs"
	"codeberg.org/lexiread/lexiread/internal/models"
	"codeberg.org/lexiread/lexiread/internal/monitor"
	"codeberg.org/lexiread/lexiread/internal/orchestrator"
	"codeberg.org/lexiread/lexiread/internal/progress"
	"codeberg.org/lexiread/lexiread/internal/provider"
	"codeberg.org/lexiread/lexiread/internal/storage"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Set the run function
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, flags)
	}

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	logger := newLogger(flags.Verbose)
	ctx := context.Background()

	// Handle --list-models flag
	if flags.ListModels {
		lister := models.NewLister(cli.GetOpenAIKey())
		return lister.ListAvailableModels()
	}

	store, kv, closeStore := openStore(flags, logger)
	defer closeStore()

	// Handle --clear-cache flag
	if flags.ClearCache {
		store.ClearAll(ctx)
		fmt.Println("Cache cleared.")
		return nil
	}

	// Handle --stats flag
	if flags.ShowStats {
		offline := monitor.NewOfflineMode(monitor.NewNetwork(logger), store)
		printStats(ctx, store, kv, offline)
		return nil
	}

	if removed := store.Maintain(ctx); removed > 0 {
		logger.Debug().Int("removed", removed).Msg("swept expired cache entries")
	}

	network := monitor.NewNetwork(logger)
	limits := monitor.NewRateLimits()
	selector := degrade.NewSelector(network, limits, logger)
	registry := buildRegistry(flags)

	var unavailable []string
	for _, service := range flags.Services {
		if service == degrade.LocalService {
			continue
		}
		if _, ok := selector.BestService([]string{service}); !ok {
			unavailable = append(unavailable, service)
		}
	}
	if len(unavailable) > 0 {
		fmt.Fprintln(os.Stderr, degrade.DegradedModeMessage(unavailable))
	}

	orch := orchestrator.New(store, selector, limits, registry,
		orchestrator.WithLogger(logger))

	if flags.VocabFile != "" {
		return runVocabulary(ctx, orch, flags, args)
	}

	if len(args) == 0 {
		return fmt.Errorf("nothing to do: pass an article file, or use --vocab, --stats or --clear-cache")
	}

	return runArticle(ctx, orch, flags, args[0])
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// openStore opens the SQLite-backed cache, falling back to memory when the
// database cannot be opened.
func openStore(flags *cli.Flags, logger zerolog.Logger) (*cache.Store, storage.KV, func()) {
	if err := os.MkdirAll(filepath.Dir(flags.StatePath), 0755); err == nil {
		if kv, err := storage.OpenSQLite(flags.StatePath); err == nil {
			store := cache.New(cache.DefaultConfig(), cache.WithKV(kv), cache.WithLogger(logger))
			return store, kv, func() { kv.Close() }
		} else {
			logger.Warn().Err(err).Str("path", flags.StatePath).Msg("cache database unavailable, results will not persist")
		}
	}
	kv := storage.NewMemory()
	store := cache.New(cache.DefaultConfig(), cache.WithKV(kv), cache.WithLogger(logger))
	return store, kv, func() {}
}

func buildRegistry(flags *cli.Flags) *provider.Registry {
	registry := provider.NewRegistry()
	for _, service := range flags.Services {
		switch service {
		case provider.ServiceOpenAI:
			registry.Register(provider.NewOpenAI(cli.GetOpenAIKey(), flags.OpenAIModel))
		case provider.ServiceGemini:
			registry.Register(provider.NewGemini(cli.GetGeminiKey(), flags.GeminiModel))
		case provider.ServiceLocal:
			registry.Register(provider.NewLocal())
		default:
			fmt.Fprintf(os.Stderr, "Warning: unknown service %q ignored\n", service)
		}
	}
	return registry
}

func runArticle(ctx context.Context, orch *orchestrator.Orchestrator, flags *cli.Flags, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read article: %w", err)
	}

	chunks := orchestrator.ProgressiveChunks(string(data), flags.ChunkWords)
	if len(chunks) == 0 {
		return fmt.Errorf("no readable text in %s", path)
	}

	tracker := progress.NewTracker("article", int64(len(chunks)))
	tracker.OnProgress(func(s progress.State) {
		fmt.Fprintf(os.Stderr, "\r%s (%d%%)", s.Message, s.Percentage)
	})

	state := orch.ProcessArticle(ctx, chunks, flags.Difficulty, &orchestrator.ArticleOptions{
		MaxConcurrency: flags.MaxConcurrency,
		Services:       flags.Services,
		Tracker:        tracker,
	})
	fmt.Fprintln(os.Stderr)

	for _, chunk := range state.Chunks {
		if chunk.Err != nil {
			p := errs.Present(chunk.Err)
			fmt.Fprintf(os.Stderr, "%s: %s %s\n", p.Title, p.Message, p.Action)
			continue
		}
		fmt.Printf("--- Part %d ---\n", chunk.Order+1)
		if flags.Summarize && chunk.Summary != "" {
			fmt.Printf("Summary: %s\n", chunk.Summary)
		}
		if flags.Rewrite && chunk.Rewritten != "" {
			fmt.Printf("\n%s\n", chunk.Rewritten)
		}
		fmt.Println()
	}

	if failed := len(state.Errors()); failed > 0 {
		return fmt.Errorf("%d of %d parts failed", failed, len(state.Chunks))
	}
	return nil
}

func runVocabulary(ctx context.Context, orch *orchestrator.Orchestrator, flags *cli.Flags, args []string) error {
	words, err := readWordList(flags.VocabFile)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return fmt.Errorf("no words in %s", flags.VocabFile)
	}

	// An article argument doubles as analysis context.
	textContext := ""
	if len(args) > 0 {
		if data, err := os.ReadFile(args[0]); err == nil {
			textContext = string(data)
		}
	}

	source := flags.SourceLanguage
	if source == "" {
		source = detectSource(ctx, words, textContext)
	}

	req := orchestrator.VocabularyRequest{
		Words:          words,
		Context:        textContext,
		SourceLanguage: source,
		TargetLanguage: flags.TargetLanguage,
		MaxConcurrency: flags.MaxConcurrency,
		Services:       flags.Services,
	}

	result := orch.ProcessVocabularyWithProgress(ctx, req, func(s progress.State) {
		fmt.Fprintf(os.Stderr, "\r%s (%d%%)", s.Message, s.Percentage)
	})
	fmt.Fprintln(os.Stderr)

	printed := make(map[string]bool, len(words))
	for _, word := range words {
		analysis, ok := result.Analyses[word]
		if !ok || printed[word] {
			continue
		}
		printed[word] = true
		fmt.Printf("%s (%s, difficulty %d/10)\n", analysis.Word, analysis.PartOfSpeech, analysis.Difficulty)
		if translation, ok := result.Translations[word]; ok {
			fmt.Printf("  %s\n", translation)
		}
		fmt.Printf("  %s\n", analysis.Definition)
		for _, example := range analysis.Examples {
			fmt.Printf("  e.g. %s\n", example)
		}
		fmt.Println()
	}

	for _, wordErr := range result.Errors {
		p := errs.Present(wordErr.Err)
		fmt.Fprintf(os.Stderr, "%s: %s %s\n", wordErr.Word, p.Message, p.Action)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d of %d words failed", len(result.Errors), len(words))
	}
	return nil
}

// detectSource guesses the word list's language with the on-device
// detector, falling back to English.
func detectSource(ctx context.Context, words []string, textContext string) string {
	sample := textContext
	if sample == "" {
		sample = strings.Join(words, " ")
	}
	if code, err := provider.NewLocal().DetectLanguage(ctx, sample); err == nil {
		return code
	}
	return "en"
}

func readWordList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read word list: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words, scanner.Err()
}

func printStats(ctx context.Context, store *cache.Store, kv storage.KV, offline *monitor.OfflineMode) {
	fmt.Println("Cache statistics:")
	for _, ledger := range cache.Ledgers {
		stats := store.Stats(ledger)
		fmt.Printf("  %-13s %4d / %-4d entries, %d hits, %d misses (%.0f%% hit rate)\n",
			ledger+":", stats.Size, stats.Capacity, stats.Hits, stats.Misses, stats.HitRate*100)
	}

	if bytes, err := kv.BytesInUse(ctx); err == nil {
		fmt.Printf("  on disk: %d bytes\n", bytes)
	}

	caps := offline.Capabilities()
	fmt.Println("Available offline:")
	fmt.Printf("  articles: %v, vocabulary: %v, derived content: %v\n",
		caps.Articles, caps.Vocabulary, caps.Sentences)
}
