package cli

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile    string
	VocabFile  string
	Difficulty int
	Summarize  bool
	Rewrite    bool
	ChunkWords int
	Verbose    bool
	ListModels bool

	// Cache flags
	ShowStats  bool
	ClearCache bool
	StatePath  string

	// Language flags
	SourceLanguage string
	TargetLanguage string

	// Provider flags
	Services       []string
	OpenAIModel    string
	GeminiModel    string
	MaxConcurrency int
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		Difficulty:     5,
		Summarize:      true,
		Rewrite:        true,
		ChunkWords:     300,
		TargetLanguage: "en",
		Services:       []string{"openai", "gemini", "local"},
		MaxConcurrency: 3,
	}
}
