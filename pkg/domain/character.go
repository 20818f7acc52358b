package domain

import (
	"fmt"
	"strings"
	"time"
)

// CharacterProfile はプロジェクト内で一貫した作画を保つためのキャラクター情報です。
type CharacterProfile struct {
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	VisualTraits   string    `json:"visual_traits"`
	Seed           int64     `json:"seed"` // 作成時に一度だけ割り当て、以後変更しない
	StyleReference string    `json:"style_reference,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// String はキャラクターの情報を文字列で返します。
func (c CharacterProfile) String() string {
	return fmt.Sprintf("%s (seed: %d)", c.Name, c.Seed)
}

// ConsistencyClause は "Name: traits" 形式の一貫性指示を返します。
func (c CharacterProfile) ConsistencyClause() string {
	return c.Name + ": " + c.VisualTraits
}

// MentionedIn はプロンプト中にキャラクター名が含まれるかを大文字小文字を区別せずに判定します。
func (c CharacterProfile) MentionedIn(prompt string) bool {
	if c.Name == "" {
		return false
	}
	return strings.Contains(strings.ToLower(prompt), strings.ToLower(c.Name))
}
