package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-manga-pipeline/internal/config"
	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

var quotaOpts struct {
	UserID string
	Tier   string
}

// quotaCmd は、ユーザーの残り生成可能ページ数を表示するのだ。
var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "ユーザーの残りページ数を表示するのだ。",
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

		if _, err := app.Quota.EnsureAccount(ctx, quotaOpts.UserID, domain.ParseTier(quotaOpts.Tier)); err != nil {
			return fmt.Errorf("アカウントの取得に失敗したのだ: %w", err)
		}
		account, err := app.Quota.Check(ctx, quotaOpts.UserID)
		if err != nil && !domain.IsQuotaExceeded(err) {
			return fmt.Errorf("クォータの確認に失敗したのだ: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user=%s tier=%s used=%d quota=%d remaining=%d reset=%s\n",
			account.UserID, account.Tier, account.PagesCreated, account.PagesQuota,
			account.RemainingPages(), account.QuotaResetDate.Format("2006-01-02"))
		return nil
	},
}

func init() {
	quotaCmd.Flags().StringVarP(&quotaOpts.UserID, "user", "u", config.DefaultUserID, "対象のユーザー ID なのだ。")
	quotaCmd.Flags().StringVar(&quotaOpts.Tier, "tier", config.DefaultTier, "アカウントが無い場合に作成する階層なのだ。")
}
