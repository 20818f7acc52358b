package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shouni/go-utils/envutil"

	pipelinecfg "github.com/shouni/go-manga-pipeline/pkg/config"
)

// デフォルト値の定義なのだ
const (
	DefaultHTTPTimeout  = 60 * time.Second
	DefaultImageTimeout = 120 * time.Second
	DefaultPanelCount   = 4
	DefaultUserID       = "local"
	DefaultTier         = "FREE"
	DefaultEnvFile      = ".env"
	DefaultRedisDB      = 0
	DefaultOutputDir    = "" // 空ならメモリ上に保持するだけなのだ
)

// Config はアプリケーション全体の環境設定（APIキーや接続先）を保持する構造体なのだ。
type Config struct {
	// --- LLM ---
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	HuggingFaceAPIKey string
	HuggingFaceModel  string
	AnthropicAPIKey   string
	AnthropicModel    string
	GeminiAPIKey      string
	GeminiModel       string
	GeminiImageModel  string

	// --- Image ---
	StabilityAPIKey        string
	StabilityAPIURL        string
	StabilityModelBasic    string
	StabilityModelStandard string
	StabilityModelCreative string
	NovelAIAPIKey          string
	NovelAIAPIURL          string
	MidjourneyAPIKey       string
	MidjourneyAPIURL       string

	// --- Storage ---
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SupabaseURL   string
	SupabaseKey   string
	OutputDir     string // ローカルパス or gs://bucket/prefix

	// --- Pipeline ---
	HTTPTimeout  time.Duration
	ImageTimeout time.Duration
	Pipeline     pipelinecfg.Config
}

// LoadConfig は .env（あれば）と環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	loadDotEnv(DefaultEnvFile)

	pipeline := pipelinecfg.DefaultConfig()
	pipeline.Concurrency = getInt("PANEL_CONCURRENCY", pipelinecfg.DefaultConcurrency)
	pipeline.RateInterval = getDuration("PANEL_RATE_INTERVAL", pipelinecfg.DefaultRateInterval)
	pipeline.PollInterval = getDuration("POLL_INTERVAL", pipelinecfg.DefaultPollInterval)
	pipeline.PollTimeout = getDuration("POLL_TIMEOUT", pipelinecfg.DefaultPollTimeout)

	return &Config{
		OpenAIAPIKey:      envutil.GetEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       envutil.GetEnv("OPENAI_MODEL", ""),
		OpenAIBaseURL:     envutil.GetEnv("OPENAI_BASE_URL", ""),
		HuggingFaceAPIKey: envutil.GetEnv("HUGGINGFACE_API_KEY", ""),
		HuggingFaceModel:  envutil.GetEnv("HUGGINGFACE_MODEL", ""),
		AnthropicAPIKey:   envutil.GetEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:    envutil.GetEnv("ANTHROPIC_MODEL", ""),
		GeminiAPIKey:      envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:       envutil.GetEnv("GEMINI_MODEL", ""),
		GeminiImageModel:  envutil.GetEnv("GEMINI_IMAGE_MODEL", ""),

		StabilityAPIKey:        envutil.GetEnv("STABILITY_API_KEY", ""),
		StabilityAPIURL:        envutil.GetEnv("STABILITY_API_URL", ""),
		StabilityModelBasic:    envutil.GetEnv("STABILITY_MODEL_BASIC", ""),
		StabilityModelStandard: envutil.GetEnv("STABILITY_MODEL_STANDARD", ""),
		StabilityModelCreative: envutil.GetEnv("STABILITY_MODEL_CREATIVE", ""),
		NovelAIAPIKey:          envutil.GetEnv("NOVELAI_API_KEY", ""),
		NovelAIAPIURL:          envutil.GetEnv("NOVELAI_API_URL", ""),
		MidjourneyAPIKey:       envutil.GetEnv("MIDJOURNEY_API_KEY", ""),
		MidjourneyAPIURL:       envutil.GetEnv("MIDJOURNEY_API_URL", ""),

		RedisAddr:     envutil.GetEnv("REDIS_ADDR", ""),
		RedisPassword: envutil.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", DefaultRedisDB),
		SupabaseURL:   envutil.GetEnv("SUPABASE_URL", ""),
		SupabaseKey:   envutil.GetEnv("SUPABASE_KEY", ""),
		OutputDir:     envutil.GetEnv("OUTPUT_DIR", DefaultOutputDir),

		HTTPTimeout:  getDuration("HTTP_TIMEOUT", DefaultHTTPTimeout),
		ImageTimeout: getDuration("IMAGE_TIMEOUT", DefaultImageTimeout),
		Pipeline:     pipeline.Normalize(),
	}
}

// loadDotEnv は .env を読み込むのだ。ファイルが無いのは普通のことなので黙って続けるのだ。
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn(".env の読み込みに失敗したのだ", "path", path, "error", err)
	}
}

func getInt(key string, def int) int {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("数値として解釈できない環境変数は既定値を使うのだ", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("期間として解釈できない環境変数は既定値を使うのだ", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}
