package character

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/parser"
)

// extracted は LLM が返すキャラクター 1 件です。
type extracted struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	VisualTraits traits `json:"visual_traits"`
	CamelTraits  traits `json:"visualTraits"`
}

func (c extracted) traits() string {
	if c.VisualTraits != "" {
		return string(c.VisualTraits)
	}
	return string(c.CamelTraits)
}

// traits は文字列と文字列配列のどちらでも受け付けます。配列は ", " で連結します。
type traits string

func (t *traits) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*t = traits(strings.Join(list, ", "))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = traits(s)
	return nil
}

// parseCharacters は LLM 応答から名前付きのキャラクターを取り出します。
// JSON 配列、または {"characters": [...]} を受け付けます。
func parseCharacters(raw string) ([]extracted, error) {
	var list []extracted
	if body := parser.ExtractJSON(raw, '[', ']'); body != "" {
		if err := json.Unmarshal([]byte(body), &list); err != nil {
			return nil, fmt.Errorf("キャラクター配列の解析に失敗しました: %w: %w", domain.ErrParse, err)
		}
	} else if body := parser.ExtractJSON(raw, '{', '}'); body != "" {
		var wrapped struct {
			Characters []extracted `json:"characters"`
		}
		if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
			return nil, fmt.Errorf("キャラクターオブジェクトの解析に失敗しました: %w: %w", domain.ErrParse, err)
		}
		list = wrapped.Characters
	} else {
		return nil, fmt.Errorf("応答に JSON が含まれていません: %w", domain.ErrParse)
	}

	out := make([]extracted, 0, len(list))
	for _, c := range list {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
