package domain

// Template はパネル配置の雛形です。Layout の要素数がテンプレート本来のコマ数になります。
type Template struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Layout      []Position `json:"positions"`
	MinPanels   int        `json:"min_panels"`
	MaxPanels   int        `json:"max_panels"`
	CreatedBy   string     `json:"created_by,omitempty"` // 空ならシステム標準テンプレート
}

// NativeCount はテンプレート本来のコマ数を返します。
func (t Template) NativeCount() int {
	return len(t.Layout)
}

// Supports は指定コマ数が min/max の範囲内かを判定します。0 は無制限として扱います。
func (t Template) Supports(panelCount int) bool {
	if t.MinPanels > 0 && panelCount < t.MinPanels {
		return false
	}
	if t.MaxPanels > 0 && panelCount > t.MaxPanels {
		return false
	}
	return true
}
