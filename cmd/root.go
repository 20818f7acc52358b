package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shouni/go-manga-pipeline/internal/builder"
	"github.com/shouni/go-manga-pipeline/internal/config"
)

const appName = "manga-pipeline"

// verbose は --verbose で DEBUG ログを有効にするフラグなのだ。
var verbose bool

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "物語から漫画ページを生成するのだ。",
	Long: `物語をコマに分解し、キャラクターの見た目を揃えながら各コマの画像を生成して、
テンプレートのレイアウトに配置するのだ。使えるプロバイダは環境変数の API キーで決まるのだよ。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "デバッグログを出力するのだ。")
	rootCmd.AddCommand(generateCmd, templatesCmd, quotaCmd)
}

// preRunAppE は、コマンド実行前にロガーを設定するのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// setupApp は設定を読み込んで AppContext を組み立てるのだ。呼び出し側で Close してほしいのだ。
func setupApp(ctx context.Context) (*builder.AppContext, error) {
	cfg := config.LoadConfig()
	app, err := builder.BuildApp(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("アプリケーションの初期化に失敗したのだ: %w", err)
	}
	return app, nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
