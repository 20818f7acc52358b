package builder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-manga-pipeline/internal/config"
	"github.com/shouni/go-manga-pipeline/pkg/blob"
	"github.com/shouni/go-manga-pipeline/pkg/character"
	"github.com/shouni/go-manga-pipeline/pkg/layout"
	"github.com/shouni/go-manga-pipeline/pkg/pipeline"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
	"github.com/shouni/go-manga-pipeline/pkg/provider/image"
	"github.com/shouni/go-manga-pipeline/pkg/provider/llm"
	"github.com/shouni/go-manga-pipeline/pkg/quota"
	"github.com/shouni/go-manga-pipeline/pkg/store"

	"github.com/shouni/go-gemini-client/gemini"
	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"google.golang.org/genai"
)

// BuildApp は設定から AppContext を組み立てます。
// 外部サービスは設定されているものだけを使い、未設定のストアはメモリで代替します。
func BuildApp(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	app := &AppContext{Config: cfg}

	stores, err := buildStores(ctx, cfg, app)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Stores = stores

	blobs, err := buildBlobStore(ctx, cfg.OutputDir, app)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	registry, err := BuildRegistry(ctx, cfg, blobs)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Registry = registry

	if app.Quota, err = quota.NewService(stores); err != nil {
		return nil, err
	}
	if app.Layout, err = layout.NewEngine(stores, stores); err != nil {
		return nil, err
	}
	chars, err := character.NewManager(stores)
	if err != nil {
		return nil, err
	}

	app.Orchestrator, err = pipeline.NewOrchestrator(cfg.Pipeline, pipeline.Dependencies{
		Registry:   registry,
		Quota:      app.Quota,
		Characters: chars,
		Layout:     app.Layout,
		Projects:   stores,
		Models:     stores,
	})
	if err != nil {
		return nil, fmt.Errorf("オーケストレーターの初期化に失敗しました: %w", err)
	}
	return app, nil
}

// buildStores はメモリストアを土台に、設定された Redis と Supabase を重ねます。
func buildStores(ctx context.Context, cfg *config.Config, app *AppContext) (*store.Composite, error) {
	stores := store.NewComposite(store.NewMemory(layout.DefaultTemplates()...))

	if cfg.RedisAddr != "" {
		r, err := store.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("Redis への接続に失敗しました: %w", err)
		}
		app.closers = append(app.closers, r.Close)
		stores.WithRedis(r)
		slog.InfoContext(ctx, "Redis ストアを使用します", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	}

	if cfg.SupabaseURL != "" {
		s, err := store.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, fmt.Errorf("Supabase クライアントの初期化に失敗しました: %w", err)
		}
		stores.WithSupabase(s)
		slog.InfoContext(ctx, "Supabase ストアを使用します", "url", cfg.SupabaseURL)
	}
	return stores, nil
}

// buildBlobStore は出力先が設定されていれば GCS / ローカルに書き出すストアを、無ければメモリストアを返します。
func buildBlobStore(ctx context.Context, outputDir string, app *AppContext) (blob.Store, error) {
	if outputDir == "" {
		slog.InfoContext(ctx, "OUTPUT_DIR が未設定のため、生成画像はメモリ上に保持します")
		return blob.NewMemoryStore(), nil
	}

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, fmt.Errorf("OutputWriterの取得に失敗しました: %w", err)
	}
	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, fmt.Errorf("InputReaderの取得に失敗しました: %w", err)
	}
	app.Reader, app.Writer = reader, writer

	assets, err := blob.NewAssetStore(writer, outputDir)
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// registration は 1 つのプロバイダ登録です。
type registration struct {
	capability provider.Capability
	name       string
	instance   provider.Configurable
	options    provider.Options
}

// BuildRegistry は全プロバイダを設定し、設定に成功したものだけを登録します。
// API キーが無いなど設定できないプロバイダは登録しません。
func BuildRegistry(ctx context.Context, cfg *config.Config, blobs blob.Store) (*provider.Registry, error) {
	httpClient := httpkit.New(cfg.HTTPTimeout)
	restClient := image.NewRestClient(cfg.ImageTimeout)

	regs := []registration{
		{provider.CapabilityNarrative, llm.OpenAIName, llm.NewOpenAI(httpClient), provider.Options{
			"api_key": cfg.OpenAIAPIKey, "model": cfg.OpenAIModel, "base_url": cfg.OpenAIBaseURL,
		}},
		{provider.CapabilityNarrative, llm.HuggingFaceName, llm.NewHuggingFace(httpClient), provider.Options{
			"api_key": cfg.HuggingFaceAPIKey, "model": cfg.HuggingFaceModel,
		}},
		{provider.CapabilityNarrative, llm.AnthropicName, llm.NewAnthropic(httpClient), provider.Options{
			"api_key": cfg.AnthropicAPIKey, "model": cfg.AnthropicModel,
		}},
		{provider.CapabilityImage, image.NovelAIName, image.NewNovelAI(restClient, blobs), provider.Options{
			"api_key": cfg.NovelAIAPIKey, "api_url": cfg.NovelAIAPIURL,
		}},
		{provider.CapabilityImage, image.MidjourneyName, image.NewMidjourney(restClient), provider.Options{
			"api_key": cfg.MidjourneyAPIKey, "api_url": cfg.MidjourneyAPIURL,
			"poll_interval": cfg.Pipeline.PollInterval.String(),
		}},
	}

	for name, model := range map[string]string{
		image.StabilityBasicName:    cfg.StabilityModelBasic,
		image.StabilityStandardName: cfg.StabilityModelStandard,
		image.StabilityCreativeName: cfg.StabilityModelCreative,
	} {
		regs = append(regs, registration{provider.CapabilityImage, name, image.NewStableDiffusion(name, restClient, blobs), provider.Options{
			"api_key": cfg.StabilityAPIKey, "api_url": cfg.StabilityAPIURL, "model": model,
		}})
	}

	if cfg.GeminiAPIKey != "" {
		client, err := initializeAIClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		regs = append(regs,
			registration{provider.CapabilityNarrative, llm.GeminiName, llm.NewGemini(client), provider.Options{"model": cfg.GeminiModel}},
			registration{provider.CapabilityImage, image.GeminiImageName, image.NewGeminiImage(client, blobs), provider.Options{"model": cfg.GeminiImageModel}},
		)
	}

	registry := provider.NewRegistry()
	var skipped []string
	for _, r := range regs {
		if err := r.instance.Configure(r.options); err != nil {
			skipped = append(skipped, r.name)
			slog.DebugContext(ctx, "プロバイダを設定できないため登録しません", "capability", r.capability, "provider", r.name, "error", err)
			continue
		}
		if err := registry.Register(r.capability, r.name, r.instance); err != nil {
			return nil, err
		}
	}

	slog.InfoContext(ctx, "プロバイダを登録しました",
		"narrative", registry.Names(provider.CapabilityNarrative),
		"image", registry.Names(provider.CapabilityImage),
		"skipped", strings.Join(skipped, ","),
	)
	return registry, nil
}

// initializeAIClient は Gemini の共通クライアントを生成します。
func initializeAIClient(ctx context.Context, apiKey string) (*gemini.Client, error) {
	const defaultGeminiTemperature = float32(0.7)
	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return client, nil
}
