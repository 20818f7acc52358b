package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

// Memory はプロセス内で全ての永続化契約を満たす実装です。既定のバックエンドとテストで使います。
type Memory struct {
	mu        sync.RWMutex
	profiles  map[string][]domain.CharacterProfile
	templates []domain.Template
	projects  map[string]domain.Project
	panels    map[string]map[int]domain.Panel
	accounts  map[string]domain.Account
	models    map[string]domain.AIModel
}

// NewMemory は templates を登録順に保持した Memory を生成します。
func NewMemory(templates ...domain.Template) *Memory {
	return &Memory{
		profiles:  make(map[string][]domain.CharacterProfile),
		templates: slices.Clone(templates),
		projects:  make(map[string]domain.Project),
		panels:    make(map[string]map[int]domain.Panel),
		accounts:  make(map[string]domain.Account),
		models:    make(map[string]domain.AIModel),
	}
}

func (m *Memory) ListProfiles(ctx context.Context, projectID string) ([]domain.CharacterProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.profiles[projectID]), nil
}

func (m *Memory) SaveProfile(ctx context.Context, projectID string, profile domain.CharacterProfile) error {
	if profile.Name == "" {
		return fmt.Errorf("memory_store: キャラクター名は必須です")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.profiles[projectID]
	if i := slices.IndexFunc(list, func(p domain.CharacterProfile) bool { return p.Name == profile.Name }); i >= 0 {
		if list[i].Seed != 0 {
			profile.Seed = list[i].Seed
		}
		if !list[i].CreatedAt.IsZero() {
			profile.CreatedAt = list[i].CreatedAt
		}
		list[i] = profile
		return nil
	}
	m.profiles[projectID] = append(list, profile)
	return nil
}

func (m *Memory) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.templates), nil
}

func (m *Memory) TemplateBySlug(ctx context.Context, slug string) (*domain.Template, error) {
	return m.findTemplate("slug", slug, func(t domain.Template) bool { return strings.EqualFold(t.Slug, slug) })
}

func (m *Memory) TemplateByID(ctx context.Context, id string) (*domain.Template, error) {
	return m.findTemplate("id", id, func(t domain.Template) bool { return t.ID == id })
}

func (m *Memory) findTemplate(key, value string, match func(domain.Template) bool) (*domain.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := slices.IndexFunc(m.templates, match); i >= 0 {
		t := m.templates[i]
		t.Layout = slices.Clone(t.Layout)
		return &t, nil
	}
	return nil, fmt.Errorf("template %s=%q: %w", key, value, domain.ErrNotFound)
}

// PutTemplate はテンプレートを追加または ID で置換します。
func (m *Memory) PutTemplate(t domain.Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := slices.IndexFunc(m.templates, func(x domain.Template) bool { return x.ID == t.ID }); i >= 0 {
		m.templates[i] = t
		return
	}
	m.templates = append(m.templates, t)
}

func (m *Memory) CreateProject(ctx context.Context, project *domain.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[project.ID]; ok {
		return fmt.Errorf("memory_store: project %s は既に存在します", project.ID)
	}
	m.projects[project.ID] = withoutPanels(*project)
	return nil
}

func (m *Memory) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %q: %w", id, domain.ErrNotFound)
	}
	for _, panel := range m.panels[id] {
		p.Panels = append(p.Panels, panel)
	}
	slices.SortFunc(p.Panels, func(a, b domain.Panel) int { return cmp.Compare(a.Index, b.Index) })
	return &p, nil
}

func (m *Memory) SaveProject(ctx context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[project.ID]; !ok {
		return fmt.Errorf("project %q: %w", project.ID, domain.ErrNotFound)
	}
	m.projects[project.ID] = withoutPanels(*project)
	return nil
}

func (m *Memory) SavePanel(ctx context.Context, projectID string, panel domain.Panel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[projectID]; !ok {
		return fmt.Errorf("project %q: %w", projectID, domain.ErrNotFound)
	}
	if m.panels[projectID] == nil {
		m.panels[projectID] = make(map[int]domain.Panel)
	}
	if panel.Position != nil {
		pos := *panel.Position
		panel.Position = &pos
	}
	m.panels[projectID][panel.Index] = panel
	return nil
}

func (m *Memory) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[userID]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", userID, domain.ErrNotFound)
	}
	return &a, nil
}

func (m *Memory) SaveAccount(ctx context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.UserID] = account
	return nil
}

func (m *Memory) IncrementUsage(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return fmt.Errorf("account %q: %w", userID, domain.ErrNotFound)
	}
	a.PagesCreated++
	m.accounts[userID] = a
	return nil
}

func (m *Memory) ModelByID(ctx context.Context, id string) (*domain.AIModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	model, ok := m.models[id]
	if !ok {
		return nil, fmt.Errorf("model %q: %w", id, domain.ErrNotFound)
	}
	return &model, nil
}

// PutModel はモデルの組み合わせを登録します。
func (m *Memory) PutModel(model domain.AIModel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[model.ID] = model
}

func withoutPanels(p domain.Project) domain.Project {
	p.Panels = nil
	return p
}
