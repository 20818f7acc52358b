package provider

import (
	"context"
	"sync"

	"github.com/shouni/go-manga-pipeline/pkg/parser"
)

type mockNarrative struct{ name string }

func (m *mockNarrative) Name() string { return m.name }

func (m *mockNarrative) Configure(opts Options) error { return nil }

func (m *mockNarrative) Decompose(ctx context.Context, text string, n int) (parser.Result, error) {
	return parser.ParseText(text), nil
}

func (m *mockNarrative) Invoke(ctx context.Context, prompt string) (string, error) {
	return prompt, nil
}

type mockImage struct{ name string }

func (m *mockImage) Name() string { return m.name }

func (m *mockImage) Configure(opts Options) error { return nil }

func (m *mockImage) Synthesize(ctx context.Context, prompt string, params ImageParams) (*Synthesis, error) {
	return Completed("mem://" + prompt), nil
}

// mockPoller は statuses を順番に返し、尽きたら最後の状態を返し続けます。
type mockPoller struct {
	mu       sync.Mutex
	statuses []JobStatus
	err      error
	calls    int
}

func (m *mockPoller) Name() string { return "mock-poller" }

func (m *mockPoller) PollStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	idx := min(m.calls-1, len(m.statuses)-1)
	st := m.statuses[idx]
	return &st, nil
}

func (m *mockPoller) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
