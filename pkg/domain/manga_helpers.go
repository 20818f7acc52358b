package domain

// Panels はパネルのスライスに対するヘルパーを提供します。
type Panels []Panel

// FromDrafts は正規化済みの下書きから 1 始まりの連番を振ったパネル列を作ります。
func FromDrafts(drafts []PanelDraft) Panels {
	panels := make(Panels, len(drafts))
	for i, d := range drafts {
		panels[i] = Panel{
			Index:       i + 1,
			Description: d.Description,
			ImagePrompt: d.ImagePrompt,
		}
	}
	return panels
}

// IsDense は連番が 1 から欠番なく並んでいるかを判定します。
func (ps Panels) IsDense() bool {
	for i, p := range ps {
		if p.Index != i+1 {
			return false
		}
	}
	return true
}

// Positioned はレイアウト位置が割り当て済みのパネル数を返します。
func (ps Panels) Positioned() int {
	n := 0
	for _, p := range ps {
		if p.Position != nil {
			n++
		}
	}
	return n
}
