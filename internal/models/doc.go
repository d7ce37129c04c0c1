// Package models provides functionality for listing the OpenAI models
// available to the configured API key, so users can pick a chat model
// for reading assistance.
package models
