// Package quota はユーザーごとの月間ページ上限を管理します。
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/store"
)

// ResetPeriod は利用量をリセットする周期です。
const ResetPeriod = 30 * 24 * time.Hour

var defaultQuotas = map[domain.Tier]int{
	domain.TierFree:       5,
	domain.TierBasic:      30,
	domain.TierPro:        100,
	domain.TierEnterprise: 1000,
}

// DefaultQuota は階層ごとの既定ページ上限を返します。未知の階層は FREE の値です。
func DefaultQuota(tier domain.Tier) int {
	if q, ok := defaultQuotas[tier]; ok {
		return q
	}
	return defaultQuotas[domain.TierFree]
}

// Service はアカウントの利用量を確認・加算します。
type Service struct {
	accounts store.AccountStore
	now      func() time.Time
}

// NewService は Service を生成します。
func NewService(accounts store.AccountStore) (*Service, error) {
	if accounts == nil {
		return nil, fmt.Errorf("quota: account store は必須です")
	}
	return &Service{accounts: accounts, now: time.Now}, nil
}

// EnsureAccount はアカウントを返します。存在しなければ tier の既定上限で作成します。
func (s *Service) EnsureAccount(ctx context.Context, userID string, tier domain.Tier) (*domain.Account, error) {
	account, err := s.accounts.GetAccount(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}

	created := domain.Account{
		UserID:         userID,
		Tier:           tier,
		PagesQuota:     DefaultQuota(tier),
		QuotaResetDate: s.now().Add(ResetPeriod),
	}
	if err := s.accounts.SaveAccount(ctx, created); err != nil {
		return nil, fmt.Errorf("アカウントの作成に失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "アカウントを作成しました", "user_id", userID, "tier", tier, "quota", created.PagesQuota)
	return &created, nil
}

// Check はリセット日を過ぎていれば利用量を 0 に戻し、残りが無ければ ErrQuotaExceeded を返します。
func (s *Service) Check(ctx context.Context, userID string) (*domain.Account, error) {
	account, err := s.accounts.GetAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}

	now := s.now()
	if now.After(account.QuotaResetDate) {
		account.PagesCreated = 0
		account.QuotaResetDate = now.Add(ResetPeriod)
		if err := s.accounts.SaveAccount(ctx, *account); err != nil {
			return nil, fmt.Errorf("利用量のリセットに失敗しました: %w", err)
		}
		slog.InfoContext(ctx, "月間利用量をリセットしました", "user_id", userID, "next_reset", account.QuotaResetDate.Format(time.DateOnly))
	}

	if account.RemainingPages() <= 0 {
		return account, fmt.Errorf("user %s (%d/%d pages): %w", userID, account.PagesCreated, account.PagesQuota, domain.ErrQuotaExceeded)
	}
	return account, nil
}

// Increment は生成済みページ数を 1 増やします。
func (s *Service) Increment(ctx context.Context, userID string) error {
	if err := s.accounts.IncrementUsage(ctx, userID); err != nil {
		return fmt.Errorf("利用量の加算に失敗しました: %w", err)
	}
	return nil
}

// Remaining は残りページ数を返します。
func (s *Service) Remaining(ctx context.Context, userID string) (int, error) {
	account, err := s.Check(ctx, userID)
	if account == nil {
		return 0, err
	}
	if err != nil && !errors.Is(err, domain.ErrQuotaExceeded) {
		return 0, err
	}
	return account.RemainingPages(), nil
}
