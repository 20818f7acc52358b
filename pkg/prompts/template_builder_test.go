package prompts

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestTextPromptBuilder_Build(t *testing.T) {
	b, err := NewTextPromptBuilder()
	if err != nil {
		t.Fatalf("ビルダーの初期化に失敗しました: %v", err)
	}

	t.Run("分解プロンプトにパネル数と物語が埋め込まれること", func(t *testing.T) {
		got, err := b.Build(ModeDecompose, TemplateData{InputText: "A hero wins.", PanelCount: 4})
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		if !strings.Contains(got, "into 4 manga panels") || !strings.Contains(got, "A hero wins.") {
			t.Errorf("プロンプトが不正です: %s", got)
		}
	})

	t.Run("不明なモードはエラーになること", func(t *testing.T) {
		if _, err := b.Build("unknown", TemplateData{}); err == nil {
			t.Error("エラーが返されませんでした")
		}
	})
}

func TestTemplate(t *testing.T) {
	got := Template("story", 3, []TemplateOption{
		{Name: "Basic Grid", Description: "2x2 grid"},
		{Name: "Simple Vertical", Description: "stacked rows"},
	})
	for _, want := range []string{"Panel count: 3", "Basic Grid: 2x2 grid", "Simple Vertical: stacked rows"} {
		if !strings.Contains(got, want) {
			t.Errorf("%q が含まれていません: %s", want, got)
		}
	}
}

func TestNewTextPromptBuilder_Loader(t *testing.T) {
	t.Run("埋め込みテンプレートから三つのモードが読み込まれること", func(t *testing.T) {
		b, err := NewTextPromptBuilder()
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		for _, mode := range []string{ModeDecompose, ModeCharacters, ModeTemplate} {
			if _, err := b.Build(mode, TemplateData{InputText: "x", PanelCount: 1}); err != nil {
				t.Errorf("モード %s の構築に失敗しました: %v", mode, err)
			}
		}
	})

	t.Run("接頭辞の無いファイルは無視され、欠けたモードはエラーになること", func(t *testing.T) {
		fsys := fstest.MapFS{
			"templates/prompt_decompose.md":  {Data: []byte("Split {{.InputText}}")},
			"templates/prompt_characters.md": {Data: []byte("Extract {{.InputText}}")},
			"templates/template.md":          {Data: []byte("ignored")},
		}
		if _, err := newTextPromptBuilder(fsys); err == nil {
			t.Error("エラーが返されませんでした")
		}
	})

	t.Run("ファイル名の接頭辞と拡張子を除いた名前がモードになること", func(t *testing.T) {
		fsys := fstest.MapFS{
			"templates/prompt_decompose.md":  {Data: []byte("Split {{.InputText}} into {{.PanelCount}}")},
			"templates/prompt_characters.md": {Data: []byte("Extract {{.InputText}}")},
			"templates/prompt_template.md":   {Data: []byte("Suggest for {{.InputText}}")},
		}
		b, err := newTextPromptBuilder(fsys)
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		got, err := b.Build(ModeDecompose, TemplateData{InputText: "story", PanelCount: 2})
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		if got != "Split story into 2" {
			t.Errorf("プロンプトが不正です: %s", got)
		}
	})
}
