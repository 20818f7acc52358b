package layout

import (
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

// SimilarityThreshold を超える類似度のテンプレート名だけをあいまい一致として受け入れます。
const SimilarityThreshold = 0.6

// fullPage はポジションを持たないテンプレートを分割するときの起点です。
var fullPage = domain.Position{X: 0, Y: 0, Width: 1, Height: 1}

// AdaptLayout は layout を target 個のポジションに合わせたコピーを返します。
//
// 少ない場合は先頭から target 個に切り詰めます。残りの領域は詰め直しません。
// 多い場合は面積最大のポジション（同面積なら先頭）を長辺方向に半分へ分割し、
// 新しい半分を末尾に追加することを target 個になるまで繰り返します。総面積は変わりません。
func AdaptLayout(layout []domain.Position, target int) []domain.Position {
	if target <= 0 {
		return []domain.Position{}
	}
	if target <= len(layout) {
		return slices.Clone(layout[:target])
	}

	positions := make([]domain.Position, len(layout), target)
	copy(positions, layout)
	if len(positions) == 0 {
		positions = append(positions, fullPage)
	}

	for len(positions) < target {
		i := largest(positions)
		p := positions[i]
		if p.Width >= p.Height {
			half := p.Width / 2
			positions[i].Width = half
			positions = append(positions, domain.Position{X: p.X + half, Y: p.Y, Width: half, Height: p.Height})
		} else {
			half := p.Height / 2
			positions[i].Height = half
			positions = append(positions, domain.Position{X: p.X, Y: p.Y + half, Width: p.Width, Height: half})
		}
	}
	return positions
}

// largest は面積が最大のポジションの添字を返します。同面積なら先に現れたものが勝ちます。
func largest(positions []domain.Position) int {
	best := 0
	for i := 1; i < len(positions); i++ {
		if positions[i].Area() > positions[best].Area() {
			best = i
		}
	}
	return best
}

// Resolve は LLM が返したテンプレート名を候補に解決します。
// 名前（またはスラッグ）の大文字小文字を無視した完全一致、類似度がしきい値を超える最良一致、
// fallback の順に試すため、失敗することはありません。
func Resolve(name string, templates []domain.Template, fallback domain.Template) domain.Template {
	name = cleanName(name)
	if name == "" {
		return fallback
	}

	for _, t := range templates {
		if strings.EqualFold(t.Name, name) || strings.EqualFold(t.Slug, name) {
			return t
		}
	}

	best, bestRatio := -1, 0.0
	for i, t := range templates {
		if r := Similarity(t.Name, name); r > bestRatio {
			best, bestRatio = i, r
		}
	}
	if best >= 0 && bestRatio > SimilarityThreshold {
		return templates[best]
	}
	return fallback
}

// Similarity は 2 つの文字列の類似度を [0,1] で返します。大文字小文字は区別しません。
func Similarity(a, b string) float64 {
	m := difflib.NewMatcher(runes(strings.ToLower(a)), runes(strings.ToLower(b)))
	return m.Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// cleanName は応答に付きがちな引用符や句点を取り除きます。
func cleanName(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'`*.。 \t\r\n")
}
