package prompts

import (
	"fmt"
	"io/fs"

	"github.com/shouni/go-prompt-kit/prompts"
	"github.com/shouni/go-prompt-kit/resource"
)

// PromptBuilder は、AIプロンプトを構築する契約です。
type PromptBuilder interface {
	Build(mode string, data TemplateData) (string, error)
}

// TextPromptBuilder は埋め込みテンプレートを保持し、モードに応じてプロンプトを組み立てます。
type TextPromptBuilder struct {
	builder *prompts.Builder
}

// NewTextPromptBuilder は埋め込みテンプレートから TextPromptBuilder を初期化します。
func NewTextPromptBuilder() (*TextPromptBuilder, error) {
	return newTextPromptBuilder(templateFiles)
}

func newTextPromptBuilder(fsys fs.FS) (*TextPromptBuilder, error) {
	templates, err := resource.Load(fsys, templateDir, templatePrefix)
	if err != nil {
		return nil, fmt.Errorf("プロンプトテンプレートの読み込みに失敗しました: %w", err)
	}
	for _, mode := range []string{ModeDecompose, ModeCharacters, ModeTemplate} {
		if _, ok := templates[mode]; !ok {
			return nil, fmt.Errorf("プロンプトテンプレート '%s' が見つかりません", mode)
		}
	}

	builder, err := prompts.NewBuilder(templates)
	if err != nil {
		return nil, err
	}
	return &TextPromptBuilder{builder: builder}, nil
}

// Build は、要求されたモードに応じて適切なテンプレートを実行します。
func (b *TextPromptBuilder) Build(mode string, data TemplateData) (string, error) {
	return b.builder.Build(mode, data)
}

// defaultBuilder は埋め込みテンプレートから一度だけ構築される読み取り専用のビルダーです。
var defaultBuilder = mustBuilder()

func mustBuilder() *TextPromptBuilder {
	b, err := NewTextPromptBuilder()
	if err != nil {
		panic(err)
	}
	return b
}

// Decompose は物語をパネルに分解させるプロンプトを返します。
func Decompose(narrative string, panelCount int) string {
	return mustBuild(ModeDecompose, TemplateData{InputText: narrative, PanelCount: panelCount})
}

// Characters はキャラクター抽出用のプロンプトを返します。
func Characters(narrative string) string {
	return mustBuild(ModeCharacters, TemplateData{InputText: narrative})
}

// Template はテンプレート提案用のプロンプトを返します。
func Template(narrative string, panelCount int, options []TemplateOption) string {
	return mustBuild(ModeTemplate, TemplateData{InputText: narrative, PanelCount: panelCount, Templates: options})
}

// mustBuild は固定テンプレートと固定データ型の組み合わせでのみ呼ばれるため、失敗はプログラムの誤りです。
func mustBuild(mode string, data TemplateData) string {
	s, err := defaultBuilder.Build(mode, data)
	if err != nil {
		panic(err)
	}
	return s
}
