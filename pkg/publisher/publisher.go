package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-utils/urlpath"

	"github.com/shouni/go-manga-pipeline/pkg/blob"
	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

const (
	// DefaultMangaPlotName は生成されたページ構成のデフォルト Markdown ファイル名です。
	DefaultMangaPlotName = "manga_plot.md"
	// DefaultMangaPlotJSON は生成されたプロジェクトのデフォルト JSON ファイル名です。
	DefaultMangaPlotJSON = "manga_plot.json"

	placeholder = "placeholder.png"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath string // 生成された manga_plot.md のパス
	JSONPath     string // 生成された manga_plot.json のパス
}

// MangaPublisher は生成済みプロジェクトを Markdown と JSON として書き出します。
type MangaPublisher struct {
	writer blob.OutputWriter
}

// NewMangaPublisher は MangaPublisher を生成します。
func NewMangaPublisher(writer blob.OutputWriter) (*MangaPublisher, error) {
	if writer == nil {
		return nil, fmt.Errorf("publisher: writer は必須です")
	}
	return &MangaPublisher{writer: writer}, nil
}

// Publish はプロジェクトの構成を Markdown と JSON で保存し、保存先を返します。
// 画像そのものは生成時に保存済みなので、ここでは参照だけを書き出します。
func (p *MangaPublisher) Publish(ctx context.Context, project *domain.Project, opts Options) (PublishResult, error) {
	var result PublishResult
	if project == nil {
		return result, fmt.Errorf("publisher: project は必須です")
	}

	markdownPath, err := urlpath.ResolveOutputPath(opts.OutputDir, DefaultMangaPlotName)
	if err != nil {
		return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	jsonPath, err := urlpath.ResolveOutputPath(opts.OutputDir, DefaultMangaPlotJSON)
	if err != nil {
		return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}

	content := BuildMarkdown(project)
	if err := p.writer.Write(ctx, markdownPath, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}
	result.MarkdownPath = markdownPath

	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return result, fmt.Errorf("プロジェクトのエンコードに失敗しました: %w", err)
	}
	if err := p.writer.Write(ctx, jsonPath, bytes.NewReader(data), "application/json"); err != nil {
		return result, fmt.Errorf("jsonファイルの書き込みに失敗しました: %w", err)
	}
	result.JSONPath = jsonPath

	slog.InfoContext(ctx, "プロジェクトを書き出しました", "project_id", project.ID, "markdown", markdownPath, "json", jsonPath)
	return result, nil
}

// BuildMarkdown はプロジェクトのページ構成を Markdown で表します。
// 各パネルは画像参照を見出しにし、配置と説明を属性行として並べます。
func BuildMarkdown(project *domain.Project) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", project.Title)
	if project.TemplateSlug != "" {
		fmt.Fprintf(&sb, "- template: %s\n\n", project.TemplateSlug)
	}

	for _, panel := range project.Panels {
		img := panel.ImageRef
		if img == "" {
			img = placeholder
		}
		fmt.Fprintf(&sb, "## Panel %d: %s\n", panel.Index, img)
		if pos := panel.Position; pos != nil {
			fmt.Fprintf(&sb, "- layout: x=%.3f y=%.3f w=%.3f h=%.3f\n", pos.X, pos.Y, pos.Width, pos.Height)
		} else {
			sb.WriteString("- layout: standard\n")
		}
		fmt.Fprintf(&sb, "- text: %s\n", strings.TrimSpace(panel.Description))
		sb.WriteString("\n")
	}
	return sb.String()
}
