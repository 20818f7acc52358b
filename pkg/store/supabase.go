package store

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

const (
	tableTemplates = "manga_templates"
	tableProjects  = "manga_projects"
	tablePanels    = "manga_panels"
	tableModels    = "ai_models"

	panelConflictKey = "project_id,panel_number"
)

// Supabase はテンプレート、プロジェクト、パネル、モデルを Supabase（PostgREST）に保存します。
type Supabase struct {
	client *supabase.Client
}

// NewSupabase は Supabase クライアントを生成します。
func NewSupabase(url, key string) (*Supabase, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase_store: url と key は必須です")
	}
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("supabase_store: クライアントの生成に失敗しました: %w", err)
	}
	return &Supabase{client: client}, nil
}

// projectRow は manga_projects の行です。パネルは manga_panels に分けて保存します。
type projectRow struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Narrative    string    `json:"narrative"`
	TemplateSlug string    `json:"template_slug,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type panelRow struct {
	ProjectID      string           `json:"project_id"`
	PanelNumber    int              `json:"panel_number"`
	Description    string           `json:"description"`
	Prompt         string           `json:"prompt"`
	EnhancedPrompt string           `json:"enhanced_prompt"`
	ImageURL       string           `json:"image_url"`
	Position       *domain.Position `json:"position"`
}

func toProjectRow(p *domain.Project) projectRow {
	return projectRow{
		ID:           p.ID,
		UserID:       p.UserID,
		Title:        p.Title,
		Narrative:    p.Narrative,
		TemplateSlug: p.TemplateSlug,
		CreatedAt:    p.CreatedAt,
	}
}

func toPanelRow(projectID string, p domain.Panel) panelRow {
	return panelRow{
		ProjectID:      projectID,
		PanelNumber:    p.Index,
		Description:    p.Description,
		Prompt:         p.ImagePrompt,
		EnhancedPrompt: p.EnhancedPrompt,
		ImageURL:       p.ImageRef,
		Position:       p.Position,
	}
}

func (r panelRow) panel() domain.Panel {
	return domain.Panel{
		Index:          r.PanelNumber,
		Description:    r.Description,
		ImagePrompt:    r.Prompt,
		EnhancedPrompt: r.EnhancedPrompt,
		ImageRef:       r.ImageURL,
		Position:       r.Position,
	}
}

func (s *Supabase) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	data, _, err := s.client.From(tableTemplates).
		Select("*", "", false).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("supabase_store: テンプレートの取得に失敗しました: %w", err)
	}
	var templates []domain.Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("supabase_store: テンプレートの解析に失敗しました: %w", err)
	}
	return templates, nil
}

func (s *Supabase) TemplateBySlug(ctx context.Context, slug string) (*domain.Template, error) {
	return s.templateBy("slug", slug)
}

func (s *Supabase) TemplateByID(ctx context.Context, id string) (*domain.Template, error) {
	return s.templateBy("id", id)
}

func (s *Supabase) templateBy(column, value string) (*domain.Template, error) {
	data, _, err := s.client.From(tableTemplates).
		Select("*", "", false).
		Eq(column, value).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("supabase_store: テンプレートの取得に失敗しました: %w", err)
	}
	var templates []domain.Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("supabase_store: テンプレートの解析に失敗しました: %w", err)
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("template %s=%q: %w", column, value, domain.ErrNotFound)
	}
	return &templates[0], nil
}

func (s *Supabase) CreateProject(ctx context.Context, project *domain.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}
	if _, _, err := s.client.From(tableProjects).
		Insert(toProjectRow(project), false, "", "", "").
		Execute(); err != nil {
		return fmt.Errorf("supabase_store: プロジェクトの作成に失敗しました: %w", err)
	}
	slog.DebugContext(ctx, "プロジェクトを作成しました", "project_id", project.ID)
	return nil
}

func (s *Supabase) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	data, _, err := s.client.From(tableProjects).
		Select("*", "", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("supabase_store: プロジェクトの取得に失敗しました: %w", err)
	}
	var rows []projectRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("supabase_store: プロジェクトの解析に失敗しました: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("project %q: %w", id, domain.ErrNotFound)
	}

	data, _, err = s.client.From(tablePanels).
		Select("*", "", false).
		Eq("project_id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("supabase_store: パネルの取得に失敗しました: %w", err)
	}
	var panels []panelRow
	if err := json.Unmarshal(data, &panels); err != nil {
		return nil, fmt.Errorf("supabase_store: パネルの解析に失敗しました: %w", err)
	}

	row := rows[0]
	project := &domain.Project{
		ID:           row.ID,
		UserID:       row.UserID,
		Title:        row.Title,
		Narrative:    row.Narrative,
		TemplateSlug: row.TemplateSlug,
		CreatedAt:    row.CreatedAt,
	}
	for _, p := range panels {
		project.Panels = append(project.Panels, p.panel())
	}
	slices.SortFunc(project.Panels, func(a, b domain.Panel) int { return cmp.Compare(a.Index, b.Index) })
	return project, nil
}

func (s *Supabase) SaveProject(ctx context.Context, project *domain.Project) error {
	if _, _, err := s.client.From(tableProjects).
		Update(toProjectRow(project), "", "").
		Eq("id", project.ID).
		Execute(); err != nil {
		return fmt.Errorf("supabase_store: プロジェクトの更新に失敗しました: %w", err)
	}
	return nil
}

// SavePanel は (project_id, panel_number) の一意制約で upsert します。
func (s *Supabase) SavePanel(ctx context.Context, projectID string, panel domain.Panel) error {
	if _, _, err := s.client.From(tablePanels).
		Insert(toPanelRow(projectID, panel), true, panelConflictKey, "", "").
		Execute(); err != nil {
		return fmt.Errorf("supabase_store: パネル %d の保存に失敗しました: %w", panel.Index, err)
	}
	return nil
}

func (s *Supabase) ModelByID(ctx context.Context, id string) (*domain.AIModel, error) {
	data, _, err := s.client.From(tableModels).
		Select("id, name, llm_provider, image_provider", "", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("supabase_store: モデルの取得に失敗しました: %w", err)
	}
	var models []domain.AIModel
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("supabase_store: モデルの解析に失敗しました: %w", err)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("model %q: %w", id, domain.ErrNotFound)
	}
	return &models[0], nil
}
