package cli

import (
	"reflect"
	"testing"
)

func TestNewFlags(t *testing.T) {
	flags := NewFlags()

	// Test default values
	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Difficulty", flags.Difficulty, 5},
		{"Summarize", flags.Summarize, true},
		{"Rewrite", flags.Rewrite, true},
		{"ChunkWords", flags.ChunkWords, 300},
		{"TargetLanguage", flags.TargetLanguage, "en"},
		{"Services", flags.Services, []string{"openai", "gemini", "local"}},
		{"MaxConcurrency", flags.MaxConcurrency, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.expected) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	// Test boolean defaults (should be false)
	boolTests := []struct {
		name  string
		value bool
	}{
		{"Verbose", flags.Verbose},
		{"ListModels", flags.ListModels},
		{"ShowStats", flags.ShowStats},
		{"ClearCache", flags.ClearCache},
	}

	for _, tt := range boolTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != false {
				t.Errorf("%s = %v, want false", tt.name, tt.value)
			}
		})
	}

	// Test string defaults (should be empty)
	stringTests := []struct {
		name  string
		value string
	}{
		{"CfgFile", flags.CfgFile},
		{"VocabFile", flags.VocabFile},
		{"StatePath", flags.StatePath},
		{"SourceLanguage", flags.SourceLanguage},
		{"OpenAIModel", flags.OpenAIModel},
		{"GeminiModel", flags.GeminiModel},
	}

	for _, tt := range stringTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Errorf("%s = %v, want empty string", tt.name, tt.value)
			}
		})
	}
}

func TestFlagsStructure(t *testing.T) {
	// Test that Flags struct has all expected fields
	flags := &Flags{}
	flagsType := reflect.TypeOf(*flags)

	expectedFields := []string{
		"CfgFile", "VocabFile", "Difficulty", "Summarize", "Rewrite",
		"ChunkWords", "Verbose", "ListModels", "ShowStats", "ClearCache", "StatePath",
		"SourceLanguage", "TargetLanguage",
		"Services", "OpenAIModel", "GeminiModel", "MaxConcurrency",
	}

	for _, fieldName := range expectedFields {
		t.Run("has_field_"+fieldName, func(t *testing.T) {
			if _, ok := flagsType.FieldByName(fieldName); !ok {
				t.Errorf("Flags struct missing field: %s", fieldName)
			}
		})
	}
}
