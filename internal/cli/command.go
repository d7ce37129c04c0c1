package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/lexiread/lexiread/internal"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lexiread [article-file]",
		Short: "AI Reading Assistant",
		Long: `lexiread summarizes, rewrites and translates reading material using
AI providers, with offline fallback and persistent result caching.

Examples:
  lexiread article.txt                  # Summarize and rewrite an article
  lexiread --vocab words.txt article.txt # Analyze vocabulary from file
  lexiread --stats                      # Show cache statistics
  lexiread --clear-cache                # Drop all cached results`,
		Args:    cobra.MaximumNArgs(1),
		Version: internal.Version,
	}

	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	home, _ := os.UserHomeDir()
	defaultStatePath := filepath.Join(home, ".local", "state", "lexiread", "cache.db")

	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.lexiread.yaml)")

	// Local flags
	cmd.Flags().StringVar(&flags.VocabFile, "vocab", "", "Analyze vocabulary from file (one word per line)")
	cmd.Flags().IntVarP(&flags.Difficulty, "difficulty", "d", flags.Difficulty, "Rewrite difficulty level (1-10)")
	cmd.Flags().BoolVar(&flags.Summarize, "summarize", flags.Summarize, "Generate per-chunk summaries")
	cmd.Flags().BoolVar(&flags.Rewrite, "rewrite", flags.Rewrite, "Rewrite chunks at the target difficulty")
	cmd.Flags().IntVar(&flags.ChunkWords, "chunk-words", flags.ChunkWords, "Words per article chunk")
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Verbose logging")
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List available OpenAI models for the current API key")
	cmd.Flags().BoolVar(&flags.ShowStats, "stats", false, "Show cache statistics and exit")
	cmd.Flags().BoolVar(&flags.ClearCache, "clear-cache", false, "Clear all cached results and exit")
	cmd.Flags().StringVar(&flags.StatePath, "state", defaultStatePath, "Cache database path")
	cmd.Flags().StringVar(&flags.SourceLanguage, "from", "", "Source language code (default: auto-detect)")
	cmd.Flags().StringVar(&flags.TargetLanguage, "to", flags.TargetLanguage, "Target language code")
	cmd.Flags().StringSliceVar(&flags.Services, "services", flags.Services, "AI services in preference order")
	cmd.Flags().IntVar(&flags.MaxConcurrency, "max-concurrency", flags.MaxConcurrency, "Maximum concurrent provider calls")

	// Provider flags
	cmd.Flags().StringVar(&flags.OpenAIModel, "openai-model", "", "OpenAI chat model (default: gpt-4o-mini)")
	cmd.Flags().StringVar(&flags.GeminiModel, "gemini-model", "", "Gemini model (default: gemini-2.0-flash)")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("reading.difficulty", cmd.Flags().Lookup("difficulty"))
	viper.BindPFlag("reading.chunk_words", cmd.Flags().Lookup("chunk-words"))
	viper.BindPFlag("reading.target_language", cmd.Flags().Lookup("to"))
	viper.BindPFlag("cache.state_path", cmd.Flags().Lookup("state"))
	viper.BindPFlag("providers.services", cmd.Flags().Lookup("services"))
	viper.BindPFlag("providers.openai_model", cmd.Flags().Lookup("openai-model"))
	viper.BindPFlag("providers.gemini_model", cmd.Flags().Lookup("gemini-model"))
	viper.BindPFlag("providers.max_concurrency", cmd.Flags().Lookup("max-concurrency"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".lexiread" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".lexiread")
	}

	// Environment variables
	viper.SetEnvPrefix("LEXIREAD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("providers.openai_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("providers.gemini_key")
}
