// Package llm talks to the local generation backend. The core treats the
// backend as an opaque text-generation function behind the Generator
// interface; the concrete implementation speaks the Ollama API.
package llm

import "context"

// StreamFunc receives partial response text as it arrives. May be nil.
type StreamFunc func(chunk string)

// Generator is the single capability the tree layer needs from a model
// backend: produce a response for a prompt (with optional thread context),
// and produce a short subject line for a finished exchange.
type Generator interface {
	Generate(ctx context.Context, prompt, context string, stream StreamFunc) (string, error)
	Subject(ctx context.Context, prompt, response string) (string, error)
	ModelName() string
}
