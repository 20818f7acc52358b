package domain

import "time"

// Position はページ上のパネル矩形です。テンプレートの座標系（割合またはピクセル）をそのまま保持します。
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area は矩形の面積を返します。
func (p Position) Area() float64 {
	return p.Width * p.Height
}

// PanelDraft は物語分解の正規化結果で、1コマ分の説明と画像プロンプトを保持します。
type PanelDraft struct {
	Description string `json:"description"`
	ImagePrompt string `json:"image_prompt"`
}

// Panel は漫画の1コマの構成、プロンプト、生成画像、レイアウト位置を保持します。
type Panel struct {
	// Index は 1 始まりの連番です。パネル列全体で欠番はありません。
	Index          int    `json:"panel_number"`
	Description    string `json:"description"`
	ImagePrompt    string `json:"prompt"`
	EnhancedPrompt string `json:"enhanced_prompt"`
	ImageRef       string `json:"image_url"`

	// Position はレイアウト適用前は nil です。
	Position *Position `json:"position,omitempty"`
}

// Project は1回の生成で作られる漫画ページです。
type Project struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Narrative    string    `json:"narrative"`
	TemplateSlug string    `json:"template_slug,omitempty"`
	Panels       []Panel   `json:"panels"`
	CreatedAt    time.Time `json:"created_at"`
}

// AIModel は明示的に選択できるプロバイダの組み合わせです。
type AIModel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	LLMProvider   string `json:"llm_provider"`
	ImageProvider string `json:"image_provider"`
}
