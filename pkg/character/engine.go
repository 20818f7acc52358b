// Package character はプロジェクト内のキャラクタープロファイルを管理し、作画の一貫性指示をプロンプトに注入します。
package character

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/prompts"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
	"github.com/shouni/go-manga-pipeline/pkg/store"
)

// consistencyPrefix は一貫性指示の前置きです。
const consistencyPrefix = "\nEnsure character consistency: "

// NewSeed は [1, 2^31-1] の一様乱数を返します。32 ビットの seed しか受け付けないプロバイダでもそのまま使えます。
func NewSeed() int64 {
	return rand.Int64N(math.MaxInt32) + 1
}

// Engine は 1 プロジェクト分のキャラクタープロファイルを保持します。
// プロファイルの変更は Engine 内で直列化されます。
type Engine struct {
	projectID string
	profiles  store.ProfileStore

	mu     sync.RWMutex
	roster *domain.Roster

	now  func() time.Time
	seed func() int64
}

// NewEngine は永続化済みのプロファイルを読み込んで Engine を生成します。
func NewEngine(ctx context.Context, projectID string, profiles store.ProfileStore) (*Engine, error) {
	if profiles == nil {
		return nil, fmt.Errorf("character: profile store は必須です")
	}
	list, err := profiles.ListProfiles(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("キャラクタープロファイルの読み込みに失敗しました: %w", err)
	}
	slog.DebugContext(ctx, "キャラクタープロファイルを読み込みました", "project_id", projectID, "count", len(list))

	return &Engine{
		projectID: projectID,
		profiles:  profiles,
		roster:    domain.NewRoster(list),
		now:       time.Now,
		seed:      NewSeed,
	}, nil
}

// Profiles は登録順のプロファイルを返します。
func (e *Engine) Profiles() []domain.CharacterProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.roster.Profiles()
}

// Extract は物語からキャラクターを抽出し、既存のものは外見を更新（seed は維持）、新規は seed を割り当てて保存します。
// 応答を解析できない場合は警告を出して空を返します。抽出は補助的な処理なので、呼び出し側は失敗しても続行できます。
func (e *Engine) Extract(ctx context.Context, llm provider.NarrativeProvider, narrative string) ([]domain.CharacterProfile, error) {
	raw, err := llm.Invoke(ctx, prompts.Characters(narrative))
	if err != nil {
		return nil, fmt.Errorf("キャラクター抽出の呼び出しに失敗しました: %w", err)
	}

	found, err := parseCharacters(raw)
	if err != nil {
		slog.WarnContext(ctx, "キャラクター抽出の応答を解析できませんでした", "project_id", e.projectID, "error", err)
		return []domain.CharacterProfile{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	out := make([]domain.CharacterProfile, 0, len(found))
	for _, c := range found {
		profile, exists := e.roster.Find(c.Name)
		if exists {
			profile.VisualTraits = c.traits()
			if profile.Description == "" {
				profile.Description = c.Description
			}
		} else {
			profile = domain.CharacterProfile{
				Name:         c.Name,
				Description:  c.Description,
				VisualTraits: c.traits(),
				Seed:         e.seed(),
				CreatedAt:    e.now(),
			}
		}

		if err := e.profiles.SaveProfile(ctx, e.projectID, profile); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		e.roster.Put(profile)
		out = append(out, profile)
		slog.DebugContext(ctx, "キャラクターを登録しました", "project_id", e.projectID, "character", profile.String(), "merged", exists)
	}

	if err := errors.Join(errs...); err != nil {
		return out, fmt.Errorf("キャラクタープロファイルの保存に失敗しました: %w", err)
	}
	return out, nil
}

// Inject はプロンプトにキャラクターの一貫性指示を付加し、最初に一致したキャラクターの seed を返します。
// names を省略した場合はプロンプト中で言及されているキャラクターを大文字小文字を区別せずに探します。
// 一致が無ければプロンプトをそのまま返し、seed は nil です。
func (e *Engine) Inject(prompt string, names ...string) (string, *int64) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(names) == 0 {
		names = e.roster.MentionedIn(prompt)
	}

	var clauses []string
	var seed *int64
	for _, name := range names {
		profile, ok := e.roster.Find(name)
		if !ok {
			continue
		}
		if seed == nil {
			s := profile.Seed
			seed = &s
		}
		clauses = append(clauses, profile.ConsistencyClause())
	}

	if len(clauses) == 0 {
		return prompt, nil
	}
	return prompt + consistencyPrefix + strings.Join(clauses, "; "), seed
}
