package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/promptree/promptree/internal/apperr"
)

const maxSubjectLen = 50

// Ollama implements Generator against a local Ollama server.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates a client for the given base URL (e.g.
// http://localhost:11434) and model name.
func NewOllama(baseURL, model string) (*Ollama, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("llm: parse base url: %w", err)
	}
	return &Ollama{
		client: api.NewClient(u, http.DefaultClient),
		model:  model,
	}, nil
}

// ModelName returns the configured model label.
func (o *Ollama) ModelName() string {
	return o.model
}

// Generate streams a completion for the prompt, prefixed with the thread
// context when present, and returns the concatenated response.
func (o *Ollama) Generate(ctx context.Context, prompt, contextHistory string, stream StreamFunc) (string, error) {
	full := prompt
	if contextHistory != "" {
		full = contextHistory + "\n\nUser: " + prompt
	}

	streaming := true
	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: full + "\n\nOnly output the final answer, no other text.",
		Stream: &streaming,
	}

	var sb strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		if resp.Response != "" {
			sb.WriteString(resp.Response)
			if stream != nil {
				stream(resp.Response)
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	return sb.String(), nil
}

// Subject asks the model for a short topic name for a finished exchange and
// normalizes it to a single line of at most maxSubjectLen runes.
func (o *Ollama) Subject(ctx context.Context, prompt, response string) (string, error) {
	subjectPrompt := fmt.Sprintf(
		"Generate a concise, informative topic name (max %d characters) for this conversation. "+
			"Only output the topic name, no extra content:<prompt>%s</prompt><response>%s</response>",
		maxSubjectLen, prompt, response)

	raw, err := o.Generate(ctx, subjectPrompt, "", nil)
	if err != nil {
		return "", err
	}
	return CleanSubject(raw), nil
}

// CleanSubject strips quotes and newlines from a generated subject and
// truncates it to the display limit.
func CleanSubject(s string) string {
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > maxSubjectLen {
		s = string(runes[:maxSubjectLen-3]) + "..."
	}
	return s
}
