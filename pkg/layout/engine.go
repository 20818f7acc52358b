// Package layout はテンプレートの選択と、任意のコマ数へのレイアウト適合を提供します。
package layout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/prompts"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
	"github.com/shouni/go-manga-pipeline/pkg/store"
)

const (
	catalogKey             = "templates"
	catalogTTL             = 30 * time.Minute
	catalogCleanupInterval = 1 * time.Hour
)

// tierAccess は階層ごとに利用できるシステムテンプレートのスラッグです。nil は全件を意味します。
var tierAccess = map[domain.Tier][]string{
	domain.TierFree:       {"basic-grid", "simple-vertical"},
	domain.TierBasic:      {"basic-grid", "simple-vertical", "action-focused", "dialogue-heavy"},
	domain.TierPro:        nil,
	domain.TierEnterprise: nil,
}

// Engine はテンプレートカタログを参照し、提案・適用を行います。
type Engine struct {
	templates store.TemplateStore
	projects  store.ProjectStore
	catalog   *cache.Cache
}

// NewEngine は Engine を生成します。projects が nil の場合、Apply はパネルを永続化しません。
func NewEngine(templates store.TemplateStore, projects store.ProjectStore) (*Engine, error) {
	if templates == nil {
		return nil, fmt.Errorf("layout: template store は必須です")
	}
	return &Engine{
		templates: templates,
		projects:  projects,
		catalog:   cache.New(catalogTTL, catalogCleanupInterval),
	}, nil
}

// Templates はカタログ全体を返します。結果は一定時間キャッシュされます。
func (e *Engine) Templates(ctx context.Context) ([]domain.Template, error) {
	if v, ok := e.catalog.Get(catalogKey); ok {
		if list, ok := v.([]domain.Template); ok {
			return slices.Clone(list), nil
		}
	}
	list, err := e.templates.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("テンプレート一覧の取得に失敗しました: %w", err)
	}
	e.catalog.SetDefault(catalogKey, list)
	return slices.Clone(list), nil
}

// Invalidate はカタログのキャッシュを破棄します。
func (e *Engine) Invalidate() {
	e.catalog.Delete(catalogKey)
}

// ByID は ID でテンプレートを取得します。存在しなければ domain.ErrNotFound を返します。
func (e *Engine) ByID(ctx context.Context, id string) (*domain.Template, error) {
	return e.templates.TemplateByID(ctx, id)
}

// Default は既定テンプレートを返します。ストアに無ければ組み込みのものを使います。
func (e *Engine) Default(ctx context.Context) domain.Template {
	t, err := e.templates.TemplateBySlug(ctx, DefaultSlug)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.WarnContext(ctx, "既定テンプレートの取得に失敗したため組み込みを使います", "error", err)
		}
		return builtinDefault()
	}
	return *t
}

// Available は階層とユーザーに応じて利用可能なテンプレートをカタログ順に返します。
// ENTERPRISE はそのユーザーが作成したカスタムテンプレートも含みます。
func (e *Engine) Available(ctx context.Context, tier domain.Tier, userID string) ([]domain.Template, error) {
	all, err := e.Templates(ctx)
	if err != nil {
		return nil, err
	}

	allowed, known := tierAccess[tier]
	if !known {
		allowed = []string{DefaultSlug}
	}

	var out []domain.Template
	for _, t := range all {
		switch {
		case t.CreatedBy != "":
			if tier == domain.TierEnterprise && t.CreatedBy == userID {
				out = append(out, t)
			}
		case allowed == nil || slices.Contains(allowed, t.Slug):
			out = append(out, t)
		}
	}
	return out, nil
}

// Suggest は LLM にテンプレート名を選ばせ、Resolve で候補に解決します。
// candidates が空ならカタログ全体を候補にします。LLM やストアが失敗しても既定テンプレートを返します。
func (e *Engine) Suggest(ctx context.Context, llm provider.NarrativeProvider, narrative string, panelCount int, candidates []domain.Template) domain.Template {
	fallback := e.Default(ctx)

	if len(candidates) == 0 {
		list, err := e.Templates(ctx)
		if err != nil {
			slog.WarnContext(ctx, "テンプレート一覧を取得できないため既定テンプレートを使います", "error", err)
			return fallback
		}
		candidates = list
	}
	if len(candidates) == 0 {
		return fallback
	}

	options := make([]prompts.TemplateOption, 0, len(candidates))
	for _, t := range candidates {
		options = append(options, prompts.TemplateOption{Name: t.Name, Description: t.Description})
	}

	answer, err := llm.Invoke(ctx, prompts.Template(narrative, panelCount, options))
	if err != nil {
		slog.WarnContext(ctx, "テンプレート提案に失敗したため既定テンプレートを使います", "error", err)
		return fallback
	}

	chosen := Resolve(answer, candidates, fallback)
	if chosen.Slug == fallback.Slug {
		slog.DebugContext(ctx, "提案されたテンプレート名を解決できませんでした", "answer", answer, "template", chosen.Slug)
	} else {
		slog.InfoContext(ctx, "テンプレートを選択しました", "answer", answer, "template", chosen.Slug)
	}
	return chosen
}

// Apply はパネル数に合わせたレイアウトを位置として割り当て、各パネルを永続化します。
// 入力スライスは変更せず、位置を設定したコピーを返します。
func (e *Engine) Apply(ctx context.Context, projectID string, panels []domain.Panel, tpl domain.Template) ([]domain.Panel, error) {
	layout := tpl.Layout
	if tpl.NativeCount() != len(panels) {
		slog.DebugContext(ctx, "レイアウトをコマ数に合わせます", "template", tpl.Slug, "native", tpl.NativeCount(), "panels", len(panels))
		layout = AdaptLayout(tpl.Layout, len(panels))
	}

	out := slices.Clone(panels)
	for i := range out {
		pos := layout[i]
		out[i].Position = &pos
		if e.projects == nil {
			continue
		}
		if err := e.projects.SavePanel(ctx, projectID, out[i]); err != nil {
			return nil, fmt.Errorf("パネル %d の保存に失敗しました: %w", out[i].Index, err)
		}
	}
	return out, nil
}
