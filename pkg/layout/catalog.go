package layout

import "github.com/shouni/go-manga-pipeline/pkg/domain"

// DefaultSlug は提案や解決に失敗したときに使うテンプレートです。
const DefaultSlug = "basic-grid"

// DefaultTemplates は組み込みのテンプレートを返します。座標はページに対する割合です。
func DefaultTemplates() []domain.Template {
	return []domain.Template{
		{
			ID:          "builtin-basic-grid",
			Name:        "Basic Grid",
			Slug:        DefaultSlug,
			Description: "A simple 2x2 grid of equal panels suited to steady, evenly paced scenes.",
			Layout: []domain.Position{
				{X: 0, Y: 0, Width: 0.5, Height: 0.5},
				{X: 0.5, Y: 0, Width: 0.5, Height: 0.5},
				{X: 0, Y: 0.5, Width: 0.5, Height: 0.5},
				{X: 0.5, Y: 0.5, Width: 0.5, Height: 0.5},
			},
			MinPanels: 1,
			MaxPanels: 8,
		},
		{
			ID:          "builtin-simple-vertical",
			Name:        "Simple Vertical",
			Slug:        "simple-vertical",
			Description: "Three full-width panels stacked top to bottom for linear storytelling.",
			Layout: []domain.Position{
				{X: 0, Y: 0, Width: 1, Height: 1.0 / 3},
				{X: 0, Y: 1.0 / 3, Width: 1, Height: 1.0 / 3},
				{X: 0, Y: 2.0 / 3, Width: 1, Height: 1.0 / 3},
			},
			MinPanels: 1,
			MaxPanels: 6,
		},
		{
			ID:          "builtin-action-focused",
			Name:        "Action Focused",
			Slug:        "action-focused",
			Description: "One large splash panel on top followed by two smaller reaction panels for dramatic action.",
			Layout: []domain.Position{
				{X: 0, Y: 0, Width: 1, Height: 0.6},
				{X: 0, Y: 0.6, Width: 0.5, Height: 0.4},
				{X: 0.5, Y: 0.6, Width: 0.5, Height: 0.4},
			},
			MinPanels: 2,
			MaxPanels: 6,
		},
		{
			ID:          "builtin-dialogue-heavy",
			Name:        "Dialogue Heavy",
			Slug:        "dialogue-heavy",
			Description: "Six compact panels in a 2x3 grid for conversations and quick exchanges.",
			Layout: []domain.Position{
				{X: 0, Y: 0, Width: 0.5, Height: 1.0 / 3},
				{X: 0.5, Y: 0, Width: 0.5, Height: 1.0 / 3},
				{X: 0, Y: 1.0 / 3, Width: 0.5, Height: 1.0 / 3},
				{X: 0.5, Y: 1.0 / 3, Width: 0.5, Height: 1.0 / 3},
				{X: 0, Y: 2.0 / 3, Width: 0.5, Height: 1.0 / 3},
				{X: 0.5, Y: 2.0 / 3, Width: 0.5, Height: 1.0 / 3},
			},
			MinPanels: 4,
			MaxPanels: 10,
		},
	}
}

// builtinDefault は組み込みの basic-grid です。ストアが空でも解決を失敗させないために使います。
func builtinDefault() domain.Template {
	return DefaultTemplates()[0]
}
