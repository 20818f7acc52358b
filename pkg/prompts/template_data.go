package prompts

import (
	"embed"
)

const (
	ModeDecompose  = "decompose"
	ModeCharacters = "characters"
	ModeTemplate   = "template"

	// SystemPrompt はチャット形式のプロバイダに渡すシステムプロンプトです。
	SystemPrompt = "You are a manga panel designer."

	templateDir    = "templates"
	templatePrefix = "prompt_"
)

// TemplateOption はテンプレート提案プロンプトに列挙する候補です。
type TemplateOption struct {
	Name        string
	Description string
}

// TemplateData はプロンプトテンプレートに渡すデータ構造です。
type TemplateData struct {
	InputText  string
	PanelCount int
	Templates  []TemplateOption
}

// templateFiles は prompt_<mode>.md 形式のテンプレート群です。
//
//go:embed templates/*.md
var templateFiles embed.FS
