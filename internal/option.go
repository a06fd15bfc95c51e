package internal

import "github.com/promptree/promptree/internal/llm"

// Run modes.
const (
	ModeREPL  = "repl"
	ModeServe = "serve"
	ModeMCP   = "mcp"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	mode      string
	generator llm.Generator
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode selects the run mode (repl, serve or mcp). Defaults to repl.
func WithMode(mode string) Option {
	return func(a *application) {
		a.mode = mode
	}
}

// WithGenerator overrides the generation backend. When unset the Ollama
// client from the configuration is used.
func WithGenerator(gen llm.Generator) Option {
	return func(a *application) {
		a.generator = gen
	}
}
