package parser

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

const (
	// MaxFallbackLines は行分割フォールバックで採用する最大行数です。
	MaxFallbackLines = 4
	// PromptPrefix は画像プロンプトが明示されなかったパネルに付与する定型句です。
	PromptPrefix = "Manga panel of "

	placeholderDescription = "Failed to parse response"
	placeholderPrompt      = "A blank manga panel"
)

// Kind はプロバイダの生応答の形を表すタグです。
type Kind int

const (
	// KindText は素のテキスト応答です。
	KindText Kind = iota
	// KindEnvelope はプロバイダ固有のエンベロープから取り出した単一テキストです。
	KindEnvelope
	// KindStructured は既に {description, image_prompt} のレコード列になっている応答です。
	KindStructured
)

// Raw はプロバイダアダプタが解読した生応答です。Kind に応じて Text か Panels のどちらかが有効です。
type Raw struct {
	Kind     Kind
	Provider string
	Text     string
	Panels   []domain.PanelDraft
}

// Text は素のテキスト応答を包みます。
func Text(s string) Raw { return Raw{Kind: KindText, Text: s} }

// Envelope はエンベロープから一度だけ取り出したテキストを包みます。
func Envelope(provider, payload string) Raw {
	return Raw{Kind: KindEnvelope, Provider: provider, Text: payload}
}

// Structured は構造化済みのレコード列を包みます。
func Structured(provider string, panels []domain.PanelDraft) Raw {
	return Raw{Kind: KindStructured, Provider: provider, Panels: panels}
}

// FromPayload はエンベロープの中身が JSON 配列なら構造化応答として、そうでなければテキストとして扱います。
func FromPayload(provider, payload string) Raw {
	if drafts, ok := DecodeStructured(payload); ok {
		return Structured(provider, drafts)
	}
	return Envelope(provider, payload)
}

// Strategy は正規化で採用された解析戦略です。
type Strategy string

const (
	StrategyStructured   Strategy = "structured"
	StrategyPanelMarker  Strategy = "panel-marker"
	StrategyNumberedList Strategy = "numbered-list"
	StrategyLineSplit    Strategy = "line-split"
	StrategyPlaceholder  Strategy = "placeholder"
)

// Result は正規化結果です。Panels は常に 1 件以上を含みます。
type Result struct {
	Panels   []domain.PanelDraft
	Strategy Strategy
}

// Degraded は解析に完全に失敗し、プレースホルダーが返されたかを判定します。
func (r Result) Degraded() bool {
	return r.Strategy == StrategyPlaceholder
}

// Normalize は生応答を正規化されたパネル列に変換します。
// 最初に成功した戦略の結果だけを採用し、戦略をまたいだマージは行いません。失敗時もエラーは返しません。
func Normalize(raw Raw) Result {
	var res Result
	switch raw.Kind {
	case KindStructured:
		res = passThrough(raw.Panels)
	default:
		res = ParseText(raw.Text)
	}

	if res.Degraded() {
		slog.Warn("プロバイダ応答を解析できなかったためプレースホルダーを返します",
			"provider", raw.Provider,
			"excerpt", truncateString(raw.Text, 120),
		)
	}
	return res
}

// ParseText はテキスト応答を汎用の解析カスケードで処理します。どのプロバイダからも利用できます。
func ParseText(text string) Result {
	if panels := parseMarkers(text, PanelMarkerRegex); len(panels) > 0 {
		return Result{Panels: panels, Strategy: StrategyPanelMarker}
	}
	if panels := parseMarkers(text, NumberedMarkerRegex); len(panels) > 0 {
		return Result{Panels: panels, Strategy: StrategyNumberedList}
	}
	if panels := splitLines(text); len(panels) > 0 {
		return Result{Panels: panels, Strategy: StrategyLineSplit}
	}
	return placeholder()
}

func passThrough(records []domain.PanelDraft) Result {
	panels := make([]domain.PanelDraft, 0, len(records))
	for _, r := range records {
		desc := strings.TrimSpace(r.Description)
		if desc == "" {
			continue
		}
		panels = append(panels, withPrompt(desc, r.ImagePrompt))
	}
	if len(panels) == 0 {
		return placeholder()
	}
	return Result{Panels: panels, Strategy: StrategyStructured}
}

// parseMarkers は区切りマーカーから次のマーカー（または末尾）までを1パネルとして切り出します。
func parseMarkers(text string, marker *regexp.Regexp) []domain.PanelDraft {
	locs := marker.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	var panels []domain.PanelDraft
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := text[loc[1]:end]

		desc, prompt := body, ""
		if m := ImagePromptRegex.FindStringSubmatch(body); m != nil {
			desc, prompt = m[1], m[2]
		}
		desc = cleanSegment(desc)
		if desc == "" {
			continue
		}
		panels = append(panels, withPrompt(desc, cleanSegment(prompt)))
	}
	return panels
}

func splitLines(text string) []domain.PanelDraft {
	var panels []domain.PanelDraft
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		panels = append(panels, domain.PanelDraft{Description: line, ImagePrompt: line})
		if len(panels) == MaxFallbackLines {
			break
		}
	}
	return panels
}

func withPrompt(desc, prompt string) domain.PanelDraft {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = PromptPrefix + desc
	}
	return domain.PanelDraft{Description: desc, ImagePrompt: prompt}
}

func placeholder() Result {
	return Result{
		Panels:   []domain.PanelDraft{{Description: placeholderDescription, ImagePrompt: placeholderPrompt}},
		Strategy: StrategyPlaceholder,
	}
}

// cleanSegment は前後の空白と Markdown の強調記号を取り除きます。
func cleanSegment(s string) string {
	return strings.Trim(s, " \t\r\n*_")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
