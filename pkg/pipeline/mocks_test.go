package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shouni/go-manga-pipeline/pkg/parser"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
)

// mockLLM はキャラクター抽出とテンプレート提案の問い合わせに固定応答を返します。
type mockLLM struct {
	name       string
	decomposed string
	characters string
	template   string
	decomErr   error
	calls      atomic.Int32
}

func (m *mockLLM) Name() string { return m.name }

func (m *mockLLM) Configure(opts provider.Options) error { return nil }

func (m *mockLLM) Decompose(ctx context.Context, text string, n int) (parser.Result, error) {
	m.calls.Add(1)
	if m.decomErr != nil {
		return parser.Result{}, m.decomErr
	}
	return parser.ParseText(m.decomposed), nil
}

func (m *mockLLM) Invoke(ctx context.Context, prompt string) (string, error) {
	m.calls.Add(1)
	switch {
	case strings.HasPrefix(prompt, "Extract character names"):
		return m.characters, nil
	case strings.Contains(prompt, "manga layout template"):
		return m.template, nil
	default:
		return "", errors.New("unexpected prompt")
	}
}

// mockImage は呼び出しを記録し、failOn 番目のパネルで失敗します。
type mockImage struct {
	name   string
	delay  func(prompt string) time.Duration
	failOn string

	mu      sync.Mutex
	prompts []string
	params  []provider.ImageParams
	calls   atomic.Int32
}

func (m *mockImage) Name() string { return m.name }

func (m *mockImage) Configure(opts provider.Options) error { return nil }

func (m *mockImage) Synthesize(ctx context.Context, prompt string, params provider.ImageParams) (*provider.Synthesis, error) {
	n := m.calls.Add(1)

	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.params = append(m.params, params)
	m.mu.Unlock()

	if m.failOn != "" && strings.Contains(prompt, m.failOn) {
		return nil, errors.New("upstream 500")
	}
	if m.delay != nil {
		select {
		case <-time.After(m.delay(prompt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return provider.Completed(fmt.Sprintf("mem://%d/%s", n, prompt)), nil
}

func (m *mockImage) Params() []provider.ImageParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]provider.ImageParams(nil), m.params...)
}

func (m *mockImage) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
