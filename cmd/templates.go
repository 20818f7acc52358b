package cmd

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shouni/go-manga-pipeline/internal/config"
	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

var templatesOpts struct {
	Tier   string
	UserID string
}

// templatesCmd は、階層で使えるテンプレートを一覧表示するのだ。
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "階層で利用できるテンプレートを一覧表示するのだ。",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		tier := domain.ParseTier(templatesOpts.Tier)
		list, err := app.Layout.Available(ctx, tier, templatesOpts.UserID)
		if err != nil {
			return fmt.Errorf("テンプレート一覧の取得に失敗したのだ: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSLUG\tNAME\tPANELS\tDESCRIPTION")
		for _, t := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", t.ID, t.Slug, t.Name, t.NativeCount(), t.Description)
		}
		return w.Flush()
	},
}

func init() {
	templatesCmd.Flags().StringVar(&templatesOpts.Tier, "tier", config.DefaultTier, "対象の階層なのだ。")
	templatesCmd.Flags().StringVarP(&templatesOpts.UserID, "user", "u", config.DefaultUserID, "カスタムテンプレートの作成者として扱うユーザー ID なのだ。")
}
