// Package provider defines the narrow AI service interface the pipeline
// consumes and its implementations: OpenAI, Google Gemini and a local
// on-device provider used as the offline fallback. Providers return native
// errors; classification and retry happen in the orchestration layer.
package provider
