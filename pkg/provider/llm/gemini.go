package llm

import (
	"context"
	"fmt"

	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/parser"
	"github.com/shouni/go-manga-pipeline/pkg/prompts"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
)

const (
	GeminiName         = "gemini"
	DefaultGeminiModel = "gemini-2.5-flash"
)

// PartsGenerator は gemini.Client が満たす生成の契約です。
type PartsGenerator interface {
	GenerateWithParts(ctx context.Context, modelName string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

// Gemini は Gemini API を使う物語分解プロバイダです。
type Gemini struct {
	client PartsGenerator
	model  string
}

// NewGemini は Gemini プロバイダを生成します。
func NewGemini(client PartsGenerator) *Gemini {
	return &Gemini{client: client}
}

func (p *Gemini) Name() string { return GeminiName }

// Configure は model を読み込みます。認証はクライアント生成時に済んでいる前提です。
func (p *Gemini) Configure(opts provider.Options) error {
	if p.client == nil {
		return fmt.Errorf("%s: gemini クライアントは必須です", GeminiName)
	}
	p.model = opts.Get("model", DefaultGeminiModel)
	return nil
}

// Decompose は物語をパネルに分解します。
func (p *Gemini) Decompose(ctx context.Context, text string, panelCount int) (parser.Result, error) {
	out, err := p.generate(ctx, prompts.Decompose(text, panelCount))
	if err != nil {
		return parser.Result{}, err
	}
	return parser.Normalize(parser.FromPayload(GeminiName, out)), nil
}

// Invoke は汎用プロンプトを送り、応答テキストを返します。
func (p *Gemini) Invoke(ctx context.Context, prompt string) (string, error) {
	out, err := p.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("%s: 応答にテキストがありません: %w", GeminiName, domain.ErrParse)
	}
	return out, nil
}

func (p *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	resp, err := p.client.GenerateWithParts(ctx, p.model, parts, gemini.GenerateOptions{SystemPrompt: prompts.SystemPrompt})
	if err != nil {
		return "", domain.NewProviderError(GeminiName, 0, "generate content failed", err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text, nil
}
