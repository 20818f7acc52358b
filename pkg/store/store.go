// Package store はキャラクター、テンプレート、プロジェクト、アカウント、モデルの永続化契約と実装を提供します。
package store

import (
	"context"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

// ProfileStore はプロジェクト単位のキャラクタープロファイルを保存します。
type ProfileStore interface {
	// ListProfiles は登録順（作成日時順）にプロファイルを返します。
	ListProfiles(ctx context.Context, projectID string) ([]domain.CharacterProfile, error)
	// SaveProfile はプロジェクトと名前をキーに upsert します。
	SaveProfile(ctx context.Context, projectID string, profile domain.CharacterProfile) error
}

// TemplateStore はレイアウトテンプレートを参照します。
type TemplateStore interface {
	ListTemplates(ctx context.Context) ([]domain.Template, error)
	TemplateBySlug(ctx context.Context, slug string) (*domain.Template, error)
	TemplateByID(ctx context.Context, id string) (*domain.Template, error)
}

// ProjectStore は生成されたプロジェクトとパネルを保存します。
type ProjectStore interface {
	// CreateProject は ID と作成日時が空なら採番して保存します。
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	SaveProject(ctx context.Context, project *domain.Project) error
	// SavePanel はプロジェクトとパネル番号をキーに upsert します。
	SavePanel(ctx context.Context, projectID string, panel domain.Panel) error
}

// AccountStore はユーザーの階層とページ利用量を保存します。
type AccountStore interface {
	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
	SaveAccount(ctx context.Context, account domain.Account) error
	IncrementUsage(ctx context.Context, userID string) error
}

// ModelStore は明示指定できるモデルの組み合わせを参照します。
type ModelStore interface {
	ModelByID(ctx context.Context, id string) (*domain.AIModel, error)
}

// Composite は利用可能なバックエンドを関心ごとに束ねたものです。
type Composite struct {
	ProfileStore
	TemplateStore
	ProjectStore
	AccountStore
	ModelStore
}

// NewComposite は全ての関心をメモリ実装で埋めた Composite を返します。
// 外部バックエンドは With* で差し替えます。
func NewComposite(mem *Memory) *Composite {
	return &Composite{
		ProfileStore:  mem,
		TemplateStore: mem,
		ProjectStore:  mem,
		AccountStore:  mem,
		ModelStore:    mem,
	}
}

// WithRedis はプロファイルとアカウントを Redis に差し替えます。
func (c *Composite) WithRedis(r *Redis) *Composite {
	c.ProfileStore = r
	c.AccountStore = r
	return c
}

// WithSupabase はテンプレート、プロジェクト、モデルを Supabase に差し替えます。
func (c *Composite) WithSupabase(s *Supabase) *Composite {
	c.TemplateStore = s
	c.ProjectStore = s
	c.ModelStore = s
	return c
}
