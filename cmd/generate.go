package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/go-manga-pipeline/internal/builder"
	"github.com/shouni/go-manga-pipeline/internal/config"
	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/pipeline"
)

// generateOptions は generate コマンドのフラグなのだ。
type generateOptions struct {
	Narrative  string // --narrative
	File       string // --file（ローカル or gs://）
	Panels     int    // --panels
	UserID     string // --user
	Tier       string // --tier（アカウント未作成のときだけ使うのだ）
	ModelID    string // --model
	TemplateID string // --template
	ProjectID  string // --project
	Publish    bool   // --publish
}

var genOpts generateOptions

// generateCmd は、物語から漫画ページを生成して結果を JSON で出力するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "物語から漫画ページを生成しますなのだ。",
	Long: `物語を --narrative、--file、または標準入力から受け取り、コマ割り・画像生成・レイアウトを行うのだ。
完成したプロジェクトは JSON で標準出力に書き出すのだよ。`,
	Example: `  manga-pipeline generate --narrative "Kenji runs through the rain" --panels 4
  cat story.txt | manga-pipeline generate --tier PRO`,
	RunE: generateCommand,
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&genOpts.Narrative, "narrative", "n", "", "物語の本文なのだ。")
	f.StringVarP(&genOpts.File, "file", "f", "", "物語を読み込むファイル（ローカル or gs://...）なのだ。")
	f.IntVarP(&genOpts.Panels, "panels", "p", config.DefaultPanelCount, "生成するコマ数なのだ。")
	f.StringVarP(&genOpts.UserID, "user", "u", config.DefaultUserID, "クォータを消費するユーザー ID なのだ。")
	f.StringVar(&genOpts.Tier, "tier", config.DefaultTier, "新規アカウントの階層（FREE, BASIC, PRO, ENTERPRISE）なのだ。")
	f.StringVar(&genOpts.ModelID, "model", "", "LLM と画像プロバイダの組み合わせを指定するモデル ID なのだ。")
	f.StringVar(&genOpts.TemplateID, "template", "", "提案を使わずに適用するテンプレート ID なのだ。")
	f.StringVar(&genOpts.ProjectID, "project", "", "既存プロジェクトに生成する場合のプロジェクト ID なのだ。")
	f.BoolVar(&genOpts.Publish, "publish", false, "構成を Markdown と JSON で OUTPUT_DIR に書き出すのだ。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("接続のクローズに失敗したのだ", "error", err)
		}
	}()

	narrative, err := readNarrative(cmd, app)
	if err != nil {
		return err
	}

	slog.Info("漫画生成パイプラインを起動するのだ！",
		"user", genOpts.UserID,
		"panels", genOpts.Panels,
		"model", genOpts.ModelID,
		"template", genOpts.TemplateID)

	project, err := app.Orchestrator.Generate(ctx, pipeline.Request{
		UserID:     genOpts.UserID,
		Narrative:  narrative,
		PanelCount: genOpts.Panels,
		Tier:       domain.ParseTier(genOpts.Tier),
		ModelID:    genOpts.ModelID,
		TemplateID: genOpts.TemplateID,
		ProjectID:  genOpts.ProjectID,
	})
	if err != nil {
		if domain.IsQuotaExceeded(err) {
			return fmt.Errorf("今月の生成上限に達しているのだ: %w", err)
		}
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	if genOpts.Publish {
		res, err := app.Publish(ctx, project)
		if err != nil {
			return fmt.Errorf("成果物の書き出しに失敗したのだ: %w", err)
		}
		slog.Info("成果物を書き出したのだ", "markdown", res.MarkdownPath, "json", res.JSONPath)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(project); err != nil {
		return fmt.Errorf("結果の出力に失敗したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！", "project_id", project.ID, "panels", len(project.Panels))
	return nil
}

// readNarrative は --narrative、--file、標準入力の順に物語を探すのだ。
func readNarrative(cmd *cobra.Command, app *builder.AppContext) (string, error) {
	if genOpts.Narrative != "" {
		return genOpts.Narrative, nil
	}

	var r io.Reader
	switch {
	case genOpts.File != "":
		rc, err := app.OpenInput(cmd.Context(), genOpts.File)
		if err != nil {
			return "", fmt.Errorf("物語ファイル '%s' の読み込みに失敗したのだ: %w", genOpts.File, err)
		}
		defer rc.Close()
		r = rc
	case isStdin():
		r = cmd.InOrStdin()
	default:
		return "", fmt.Errorf("物語（--narrative、--file、または標準入力）を指定してほしいのだ")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("物語の読み込みに失敗したのだ: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("物語が空なのだ")
	}
	return text, nil
}

func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
