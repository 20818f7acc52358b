package character

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/shouni/go-manga-pipeline/pkg/store"
)

const (
	engineTTL             = 30 * time.Minute
	engineCleanupInterval = 1 * time.Hour
)

// Manager はプロジェクトごとの Engine を共有します。同じプロジェクトへの並行要求は 1 つの Engine を使います。
type Manager struct {
	profiles store.ProfileStore
	pool     *cache.Cache
	loads    singleflight.Group
}

// NewManager は Manager を生成します。
func NewManager(profiles store.ProfileStore) (*Manager, error) {
	if profiles == nil {
		return nil, fmt.Errorf("character: profile store は必須です")
	}
	return &Manager{
		profiles: profiles,
		pool:     cache.New(engineTTL, engineCleanupInterval),
	}, nil
}

// ForProject はプロジェクトの Engine を返します。未ロードなら永続化済みのプロファイルから構築します。
func (m *Manager) ForProject(ctx context.Context, projectID string) (*Engine, error) {
	if e, ok := m.cached(projectID); ok {
		return e, nil
	}

	val, err, _ := m.loads.Do(projectID, func() (interface{}, error) {
		// 待機中に別の呼び出しがロードを終えている可能性があるため再確認する
		if e, ok := m.cached(projectID); ok {
			return e, nil
		}
		e, err := NewEngine(ctx, projectID, m.profiles)
		if err != nil {
			return nil, err
		}
		m.pool.SetDefault(projectID, e)
		return e, nil
	})
	if err != nil {
		return nil, err
	}

	e, ok := val.(*Engine)
	if !ok {
		return nil, fmt.Errorf("unexpected return type from singleflight: %T", val)
	}
	return e, nil
}

func (m *Manager) cached(projectID string) (*Engine, bool) {
	v, ok := m.pool.Get(projectID)
	if !ok {
		return nil, false
	}
	e, ok := v.(*Engine)
	return e, ok
}
