package domain

import (
	"testing"
)

func TestCharacterProfile_MentionedIn(t *testing.T) {
	hero := CharacterProfile{Name: "Akira", VisualTraits: "red jacket"}

	t.Run("大文字小文字を区別せずに名前を検出すること", func(t *testing.T) {
		if !hero.MentionedIn("AKIRA rides a motorcycle") {
			t.Error("大文字の名前が検出されませんでした")
		}
	})

	t.Run("名前を含まないプロンプトでは false になること", func(t *testing.T) {
		if hero.MentionedIn("a quiet street at night") {
			t.Error("含まれない名前が検出されました")
		}
	})

	t.Run("空の名前は常に false になること", func(t *testing.T) {
		if (CharacterProfile{}).MentionedIn("anything") {
			t.Error("空の名前が一致しました")
		}
	})
}

func TestCharacterProfile_ConsistencyClause(t *testing.T) {
	c := CharacterProfile{Name: "Mina", VisualTraits: "short blue hair, school uniform"}
	expected := "Mina: short blue hair, school uniform"
	if got := c.ConsistencyClause(); got != expected {
		t.Errorf("期待値 '%s', 実際の値 '%s'", expected, got)
	}
}

func TestRoster(t *testing.T) {
	r := NewRoster([]CharacterProfile{
		{Name: "Kenji", Seed: 10},
		{Name: "Mina", Seed: 20},
	})

	t.Run("登録順が保持されること", func(t *testing.T) {
		profiles := r.Profiles()
		if len(profiles) != 2 || profiles[0].Name != "Kenji" || profiles[1].Name != "Mina" {
			t.Fatalf("登録順が不正です: %+v", profiles)
		}
	})

	t.Run("既存名の Put は順序を変えずに置換すること", func(t *testing.T) {
		r.Put(CharacterProfile{Name: "Kenji", Seed: 10, VisualTraits: "glasses"})
		if r.Len() != 2 {
			t.Fatalf("件数が変化しました: %d", r.Len())
		}
		got, ok := r.Find("Kenji")
		if !ok || got.VisualTraits != "glasses" {
			t.Errorf("置換されていません: %+v", got)
		}
		if r.Profiles()[0].Name != "Kenji" {
			t.Error("置換で順序が変わりました")
		}
	})

	t.Run("言及された名前を登録順で返すこと", func(t *testing.T) {
		names := r.MentionedIn("mina waves at kenji")
		if len(names) != 2 || names[0] != "Kenji" || names[1] != "Mina" {
			t.Errorf("期待値 [Kenji Mina], 実際の値 %v", names)
		}
	})
}
