package store

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

const (
	redisKeyPrefix   = "manga"
	redisPingTimeout = 10 * time.Second
)

// Redis はキャラクタープロファイルとアカウントを Redis のハッシュに保存します。
//
//	manga:profiles:{projectID}  field=キャラクター名 value=JSON
//	manga:account:{userID}      field=subscription_tier, pages_created, pages_quota, quota_reset_date
type Redis struct {
	client redis.UniversalClient
}

// NewRedis は既存のクライアントを包みます。
func NewRedis(client redis.UniversalClient) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis_store: client は必須です")
	}
	return &Redis{client: client}, nil
}

// ConnectRedis は接続を確立し、疎通を確認した Redis を返します。
func ConnectRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	slog.InfoContext(ctx, "Redis に接続します", "addr", addr, "db", db)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis_store: 疎通確認に失敗しました: %w", err)
	}
	return NewRedis(client)
}

// Close は接続を閉じます。
func (r *Redis) Close() error {
	return r.client.Close()
}

func profilesKey(projectID string) string {
	return redisKeyPrefix + ":profiles:" + projectID
}

func accountKey(userID string) string {
	return redisKeyPrefix + ":account:" + userID
}

func (r *Redis) ListProfiles(ctx context.Context, projectID string) ([]domain.CharacterProfile, error) {
	fields, err := r.client.HGetAll(ctx, profilesKey(projectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_store: プロファイルの取得に失敗しました: %w", err)
	}
	return decodeProfiles(fields)
}

func (r *Redis) SaveProfile(ctx context.Context, projectID string, profile domain.CharacterProfile) error {
	if profile.Name == "" {
		return fmt.Errorf("redis_store: キャラクター名は必須です")
	}
	key := profilesKey(projectID)
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("redis_store: プロファイルのエンコードに失敗しました: %w", err)
	}
	created, err := r.client.HSetNX(ctx, key, profile.Name, data).Result()
	if err != nil {
		return fmt.Errorf("redis_store: プロファイルの保存に失敗しました: %w", err)
	}
	if created {
		return nil
	}

	// 既存のキャラクターは、最初に保存されたシードを保ったまま特徴だけを更新します。
	stored, err := r.client.HGet(ctx, key, profile.Name).Result()
	if err != nil {
		return fmt.Errorf("redis_store: 既存プロファイルの取得に失敗しました: %w", err)
	}
	merged, err := mergeProfile(stored, profile)
	if err != nil {
		return err
	}
	if err := r.client.HSet(ctx, key, profile.Name, merged).Err(); err != nil {
		return fmt.Errorf("redis_store: プロファイルの保存に失敗しました: %w", err)
	}
	return nil
}

// mergeProfile は保存済みプロファイルのシードと作成日時を引き継いだ JSON を返します。
func mergeProfile(stored string, profile domain.CharacterProfile) ([]byte, error) {
	var existing domain.CharacterProfile
	if err := json.Unmarshal([]byte(stored), &existing); err != nil {
		return nil, fmt.Errorf("redis_store: 既存プロファイルのデコードに失敗しました: %w", err)
	}
	if existing.Seed != 0 {
		profile.Seed = existing.Seed
	}
	if !existing.CreatedAt.IsZero() {
		profile.CreatedAt = existing.CreatedAt
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("redis_store: プロファイルのエンコードに失敗しました: %w", err)
	}
	return data, nil
}

func (r *Redis) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	fields, err := r.client.HGetAll(ctx, accountKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_store: アカウントの取得に失敗しました: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("account %q: %w", userID, domain.ErrNotFound)
	}
	return decodeAccount(userID, fields)
}

func (r *Redis) SaveAccount(ctx context.Context, account domain.Account) error {
	if err := r.client.HSet(ctx, accountKey(account.UserID), encodeAccount(account)).Err(); err != nil {
		return fmt.Errorf("redis_store: アカウントの保存に失敗しました: %w", err)
	}
	return nil
}

// IncrementUsage は pages_created を原子的に 1 増やします。存在しないアカウントは ErrNotFound です。
func (r *Redis) IncrementUsage(ctx context.Context, userID string) error {
	key := accountKey(userID)
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis_store: アカウントの確認に失敗しました: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %q: %w", userID, domain.ErrNotFound)
	}
	if err := r.client.HIncrBy(ctx, key, "pages_created", 1).Err(); err != nil {
		return fmt.Errorf("redis_store: 利用量の更新に失敗しました: %w", err)
	}
	return nil
}

// decodeProfiles は作成日時順（同時刻は名前順）に並べたプロファイルを返します。
func decodeProfiles(fields map[string]string) ([]domain.CharacterProfile, error) {
	profiles := make([]domain.CharacterProfile, 0, len(fields))
	for name, raw := range fields {
		var p domain.CharacterProfile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("redis_store: プロファイル %q のデコードに失敗しました: %w", name, err)
		}
		profiles = append(profiles, p)
	}
	slices.SortFunc(profiles, func(a, b domain.CharacterProfile) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return profiles, nil
}

func encodeAccount(a domain.Account) map[string]any {
	return map[string]any{
		"subscription_tier": string(a.Tier),
		"pages_created":     a.PagesCreated,
		"pages_quota":       a.PagesQuota,
		"quota_reset_date":  a.QuotaResetDate.UTC().Format(time.RFC3339),
	}
}

func decodeAccount(userID string, fields map[string]string) (*domain.Account, error) {
	a := &domain.Account{UserID: userID, Tier: domain.ParseTier(fields["subscription_tier"])}

	var errs []error
	var err error
	if a.PagesCreated, err = atoiField(fields, "pages_created"); err != nil {
		errs = append(errs, err)
	}
	if a.PagesQuota, err = atoiField(fields, "pages_quota"); err != nil {
		errs = append(errs, err)
	}
	if v := fields["quota_reset_date"]; v != "" {
		if a.QuotaResetDate, err = time.Parse(time.RFC3339, v); err != nil {
			errs = append(errs, fmt.Errorf("quota_reset_date: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("redis_store: アカウント %q のデコードに失敗しました: %w", userID, err)
	}
	return a, nil
}

func atoiField(fields map[string]string, key string) (int, error) {
	v, ok := fields[key]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
