package parser

import (
	"encoding/json"
	"strings"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

// structuredPanel は LLM が返しがちなキー名の揺れを吸収するためのレコードです。
type structuredPanel struct {
	Description string `json:"description"`
	Scene       string `json:"scene"`
	ImagePrompt string `json:"image_prompt"`
	CamelPrompt string `json:"imagePrompt"`
	Prompt      string `json:"prompt"`
}

func (p structuredPanel) draft() domain.PanelDraft {
	desc := p.Description
	if desc == "" {
		desc = p.Scene
	}
	prompt := p.ImagePrompt
	if prompt == "" {
		prompt = p.CamelPrompt
	}
	if prompt == "" {
		prompt = p.Prompt
	}
	return domain.PanelDraft{Description: desc, ImagePrompt: prompt}
}

// DecodeStructured はテキスト中の JSON 配列（または {"panels": [...]}）をパネル列として解読します。
// 説明を持つレコードが1件もなければ false を返します。
func DecodeStructured(text string) ([]domain.PanelDraft, bool) {
	var records []structuredPanel

	if obj := ExtractJSON(text, '{', '}'); strings.HasPrefix(strings.TrimSpace(text), "{") && obj != "" {
		var wrapper struct {
			Panels []structuredPanel `json:"panels"`
		}
		if err := json.Unmarshal([]byte(obj), &wrapper); err == nil {
			records = wrapper.Panels
		}
	}
	if records == nil {
		arr := ExtractJSON(text, '[', ']')
		if arr == "" {
			return nil, false
		}
		if err := json.Unmarshal([]byte(arr), &records); err != nil {
			return nil, false
		}
	}

	drafts := make([]domain.PanelDraft, 0, len(records))
	described := false
	for _, r := range records {
		d := r.draft()
		if strings.TrimSpace(d.Description) != "" {
			described = true
		}
		drafts = append(drafts, d)
	}
	if !described {
		return nil, false
	}
	return drafts, true
}

// ExtractJSON は LLM 応答から JSON 部分を取り出します。
// コードブロック、最外の open/close 区間の順に探し、見つからなければ空文字を返します。
func ExtractJSON(raw string, open, close byte) string {
	raw = strings.TrimSpace(raw)
	if matches := JSONBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		raw = matches[1]
	}

	first := strings.IndexByte(raw, open)
	last := strings.LastIndexByte(raw, close)
	if first == -1 || last == -1 || last <= first {
		return ""
	}
	return raw[first : last+1]
}
