// Package testutil provides shared test helpers for setting up databases
// and a scripted generation backend.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/promptree/promptree/internal/llm"
	"github.com/promptree/promptree/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "promptree-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// FakeGenerator is a scripted generation backend. Responses and Subjects
// are consumed in order; when a script runs out the last entry repeats.
// Err, when set, is returned from Generate instead.
type FakeGenerator struct {
	Model     string
	Responses []string
	Subjects  []string
	Err       error

	genCalls  int
	subjCalls int
	Prompts   []string
	Histories []string
}

// NewFakeGenerator returns a FakeGenerator with single-entry scripts.
func NewFakeGenerator(response, subject string) *FakeGenerator {
	return &FakeGenerator{
		Model:     "fake-model",
		Responses: []string{response},
		Subjects:  []string{subject},
	}
}

func pick(script []string, call int) string {
	if len(script) == 0 {
		return ""
	}
	if call >= len(script) {
		return script[len(script)-1]
	}
	return script[call]
}

// Generate returns the next scripted response, streaming it in one chunk.
func (f *FakeGenerator) Generate(ctx context.Context, prompt, contextHistory string, stream llm.StreamFunc) (string, error) {
	f.Prompts = append(f.Prompts, prompt)
	f.Histories = append(f.Histories, contextHistory)
	if f.Err != nil {
		return "", f.Err
	}
	resp := pick(f.Responses, f.genCalls)
	f.genCalls++
	if stream != nil {
		stream(resp)
	}
	return resp, nil
}

// Subject returns the next scripted subject.
func (f *FakeGenerator) Subject(ctx context.Context, prompt, response string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	subj := pick(f.Subjects, f.subjCalls)
	f.subjCalls++
	if subj == "" {
		subj = fmt.Sprintf("subject %d", f.subjCalls)
	}
	return subj, nil
}

// ModelName returns the fake model name.
func (f *FakeGenerator) ModelName() string {
	return f.Model
}

var _ llm.Generator = (*FakeGenerator)(nil)
