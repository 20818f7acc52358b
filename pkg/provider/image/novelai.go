package image

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/shouni/go-manga-pipeline/pkg/blob"
	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
)

const (
	NovelAIName           = "novelai"
	DefaultNovelAIBaseURL = "https://api.novelai.net"
	DefaultNovelAIModel   = "nai-diffusion-3"
)

var novelAIDefaults = provider.ImageParams{
	Width:          832,
	Height:         1216,
	Steps:          28,
	Guidance:       11,
	Sampler:        "k_euler_ancestral",
	NegativePrompt: "low quality, bad anatomy, worst quality",
}

type novelAIRequest struct {
	Input      string         `json:"input"`
	Model      string         `json:"model"`
	Parameters map[string]any `json:"parameters"`
}

type novelAIResponse struct {
	Image string `json:"image"`
	Data  string `json:"data"`
}

// NovelAI はアニメ調に強い NovelAI の画像生成プロバイダです。
type NovelAI struct {
	client  *resty.Client
	blobs   blob.Store
	apiKey  string
	baseURL string
	model   string
}

// NewNovelAI は NovelAI プロバイダを生成します。
func NewNovelAI(client *resty.Client, blobs blob.Store) *NovelAI {
	return &NovelAI{client: client, blobs: blobs}
}

func (p *NovelAI) Name() string { return NovelAIName }

// Configure は api_key（必須）、api_url、model を読み込みます。
func (p *NovelAI) Configure(opts provider.Options) error {
	if p.client == nil || p.blobs == nil {
		return fmt.Errorf("%s: client と blob store は必須です", NovelAIName)
	}
	p.apiKey = opts.Get("api_key", "")
	p.baseURL = strings.TrimRight(opts.Get("api_url", DefaultNovelAIBaseURL), "/")
	p.model = opts.Get("model", DefaultNovelAIModel)
	if p.apiKey == "" {
		return fmt.Errorf("%s: api_key は必須です", NovelAIName)
	}
	return nil
}

// Synthesize は画像を生成します。Guidance は NovelAI の "scale" として送信されます。
func (p *NovelAI) Synthesize(ctx context.Context, prompt string, params provider.ImageParams) (*provider.Synthesis, error) {
	req := p.buildRequest(prompt, novelAIDefaults.Merge(params))

	var out novelAIResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetBody(req).
		SetResult(&out).
		Post(p.baseURL + "/ai/generate-image")
	if err != nil {
		return nil, transportError(NovelAIName, err)
	}
	if resp.IsError() {
		return nil, apiError(NovelAIName, resp)
	}

	encoded := out.Image
	if encoded == "" {
		encoded = out.Data
	}
	if encoded == "" {
		return nil, domain.NewProviderError(NovelAIName, 0, "unexpected response format", domain.ErrParse)
	}

	ref, err := blob.PutBase64(ctx, p.blobs, encoded)
	if err != nil {
		return nil, fmt.Errorf("%s: 画像の保存に失敗しました: %w", NovelAIName, err)
	}
	return provider.Completed(ref), nil
}

// buildRequest はパラメータ名を NovelAI の語彙に写します。Extra["model"] はモデル指定として扱います。
func (p *NovelAI) buildRequest(prompt string, params provider.ImageParams) novelAIRequest {
	model := p.model
	parameters := map[string]any{
		"width":           params.Width,
		"height":          params.Height,
		"steps":           params.Steps,
		"scale":           params.Guidance,
		"sampler":         params.Sampler,
		"negative_prompt": params.NegativePrompt,
	}
	if params.Seed != nil {
		parameters["seed"] = *params.Seed
	}
	for k, v := range params.Extra {
		switch {
		case k == "model":
			if s, ok := v.(string); ok && s != "" {
				model = s
			}
		case k == "cfg_scale":
			parameters["scale"] = v
		case v != nil:
			parameters[k] = v
		}
	}
	return novelAIRequest{Input: prompt, Model: model, Parameters: parameters}
}
