package config

import (
	"time"
)

// デフォルト値の定義
const (
	DefaultConcurrency  = 4
	DefaultRateInterval = 2 * time.Second
	DefaultRateBurst    = 1
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 120 * time.Second
)

// Config は生成パイプラインの並行度と待機時間の設定です。
type Config struct {
	// --- Panel Synthesis ---
	// Concurrency は同時に生成するパネル数の上限です。1 なら逐次生成になります。
	Concurrency int
	// RateInterval は画像生成 API 呼び出しの最小間隔です。0 以下なら制限しません。
	RateInterval time.Duration
	RateBurst    int

	// --- Async Jobs ---
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		Concurrency:  DefaultConcurrency,
		RateInterval: DefaultRateInterval,
		RateBurst:    DefaultRateBurst,
		PollInterval: DefaultPollInterval,
		PollTimeout:  DefaultPollTimeout,
	}
}

// Normalize は未設定の項目をデフォルト値で埋めたコピーを返します。
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.RateBurst <= 0 {
		c.RateBurst = d.RateBurst
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = d.PollTimeout
	}
	return c
}
