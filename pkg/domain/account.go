package domain

import (
	"strings"
	"time"
)

// Tier はサブスクリプション階層です。
type Tier string

const (
	TierFree       Tier = "FREE"
	TierBasic      Tier = "BASIC"
	TierPro        Tier = "PRO"
	TierEnterprise Tier = "ENTERPRISE"
)

// ParseTier は文字列を Tier に変換します。未知の値は FREE になります。
func ParseTier(s string) Tier {
	switch t := Tier(strings.ToUpper(strings.TrimSpace(s))); t {
	case TierFree, TierBasic, TierPro, TierEnterprise:
		return t
	default:
		return TierFree
	}
}

// Account はユーザーごとの階層と月間ページ利用量です。
type Account struct {
	UserID         string    `json:"user_id"`
	Tier           Tier      `json:"subscription_tier"`
	PagesCreated   int       `json:"pages_created"`
	PagesQuota     int       `json:"pages_quota"`
	QuotaResetDate time.Time `json:"quota_reset_date"`
}

// RemainingPages は残りの生成可能ページ数を返します。負にはなりません。
func (a Account) RemainingPages() int {
	return max(0, a.PagesQuota-a.PagesCreated)
}
