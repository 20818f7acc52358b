package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestFromDrafts(t *testing.T) {
	t.Run("1 始まりの欠番のない連番が振られること", func(t *testing.T) {
		panels := FromDrafts([]PanelDraft{
			{Description: "a", ImagePrompt: "pa"},
			{Description: "b", ImagePrompt: "pb"},
			{Description: "c", ImagePrompt: "pc"},
		})
		if !panels.IsDense() {
			t.Fatalf("連番が不正です: %+v", panels)
		}
		if panels[2].Index != 3 || panels[2].ImagePrompt != "pc" {
			t.Errorf("3 コマ目が不正です: %+v", panels[2])
		}
		if panels.Positioned() != 0 {
			t.Error("レイアウト前に位置が設定されています")
		}
	})
}

func TestTemplate_Supports(t *testing.T) {
	tpl := Template{MinPanels: 2, MaxPanels: 6}
	cases := []struct {
		n    int
		want bool
	}{{1, false}, {2, true}, {6, true}, {7, false}}
	for _, c := range cases {
		if got := tpl.Supports(c.n); got != c.want {
			t.Errorf("Supports(%d) = %v, 期待値 %v", c.n, got, c.want)
		}
	}
	if !(Template{}).Supports(100) {
		t.Error("min/max 未設定は無制限であるべきです")
	}
}

func TestAccount_RemainingPages(t *testing.T) {
	t.Run("上限を超えても負にならないこと", func(t *testing.T) {
		a := Account{PagesQuota: 5, PagesCreated: 7}
		if a.RemainingPages() != 0 {
			t.Errorf("期待値 0, 実際の値 %d", a.RemainingPages())
		}
	})
	t.Run("残り枚数を返すこと", func(t *testing.T) {
		a := Account{PagesQuota: 5, PagesCreated: 2}
		if a.RemainingPages() != 3 {
			t.Errorf("期待値 3, 実際の値 %d", a.RemainingPages())
		}
	})
}

func TestParseTier(t *testing.T) {
	if ParseTier("pro") != TierPro {
		t.Error("小文字の tier が解釈されませんでした")
	}
	if ParseTier("platinum") != TierFree {
		t.Error("未知の tier は FREE になるべきです")
	}
}

func TestErrors(t *testing.T) {
	t.Run("ProviderError はラップ後も ErrProvider と一致すること", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := fmt.Errorf("panel 2: %w", NewProviderError("openai", 429, "rate limited", cause))
		if !errors.Is(err, ErrProvider) {
			t.Error("ErrProvider と一致しません")
		}
		if !errors.Is(err, cause) {
			t.Error("元のエラーを辿れません")
		}
		var pe *ProviderError
		if !errors.As(err, &pe) || pe.StatusCode != 429 {
			t.Errorf("ProviderError を取り出せません: %v", err)
		}
	})

	t.Run("TimeoutError は ErrTimeout と一致すること", func(t *testing.T) {
		err := fmt.Errorf("synthesize: %w", &TimeoutError{JobID: "job-1", After: 2 * time.Minute})
		if !errors.Is(err, ErrTimeout) {
			t.Error("ErrTimeout と一致しません")
		}
	})
}
