package character

import (
	"context"
	"errors"
	"sync"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/parser"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
)

type mockLLM struct {
	answer string
	err    error
}

func (m *mockLLM) Name() string { return "mock-llm" }

func (m *mockLLM) Configure(opts provider.Options) error { return nil }

func (m *mockLLM) Decompose(ctx context.Context, text string, n int) (parser.Result, error) {
	return parser.ParseText(text), nil
}

func (m *mockLLM) Invoke(ctx context.Context, prompt string) (string, error) { return m.answer, m.err }

// countingStore は ListProfiles の呼び出し回数を数え、SaveProfile の失敗を注入できる ProfileStore です。
type countingStore struct {
	mu       sync.Mutex
	lists    int
	failSave bool
	saved    map[string][]domain.CharacterProfile
	initial  []domain.CharacterProfile
}

func (s *countingStore) ListProfiles(ctx context.Context, projectID string) ([]domain.CharacterProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	return s.initial, nil
}

func (s *countingStore) SaveProfile(ctx context.Context, projectID string, p domain.CharacterProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("write failed")
	}
	if s.saved == nil {
		s.saved = make(map[string][]domain.CharacterProfile)
	}
	s.saved[projectID] = append(s.saved[projectID], p)
	return nil
}

func (s *countingStore) Lists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}
