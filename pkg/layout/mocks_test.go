package layout

import (
	"context"

	"github.com/shouni/go-manga-pipeline/pkg/parser"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
)

// mockLLM は Invoke に固定の応答を返します。
type mockLLM struct {
	answer     string
	err        error
	lastPrompt string
}

func (m *mockLLM) Name() string { return "mock-llm" }

func (m *mockLLM) Configure(opts provider.Options) error { return nil }

func (m *mockLLM) Decompose(ctx context.Context, text string, n int) (parser.Result, error) {
	return parser.ParseText(text), nil
}

func (m *mockLLM) Invoke(ctx context.Context, prompt string) (string, error) {
	m.lastPrompt = prompt
	return m.answer, m.err
}
