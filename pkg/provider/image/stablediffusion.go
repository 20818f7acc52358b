package image

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/shouni/go-manga-pipeline/pkg/blob"
	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
)

// StableDiffusion をモデル違いで登録するときの名前です。
const (
	StabilityBasicName    = "stability-basic"
	StabilityStandardName = "stability-standard"
	StabilityCreativeName = "stability-creative"
)

const (
	DefaultStableDiffusionModel = "stable-diffusion-xl-1024-v1-0"
	stableDiffusionNegative     = "low quality, bad anatomy, worst quality, low resolution"
)

// stableDiffusionDefaults はプロバイダ既定の品質パラメータです。呼び出し側の指定でフィールド単位に上書きされます。
var stableDiffusionDefaults = provider.ImageParams{
	Width:          768,
	Height:         768,
	Steps:          30,
	Guidance:       7.5,
	Sampler:        "DPM++ 2M Karras",
	NegativePrompt: stableDiffusionNegative,
}

// text2imgResponse は text2img API の応答です。URL、images[0]、output.data のいずれかに画像が入ります。
type text2imgResponse struct {
	URL    string   `json:"url"`
	Images []string `json:"images"`
	Output *struct {
		Data string `json:"data"`
	} `json:"output"`
}

// StableDiffusion は text2img API を使う画像生成プロバイダです。
// 同じ実装をモデル違いで複数の名前（stability-basic など）に登録します。
type StableDiffusion struct {
	name    string
	client  *resty.Client
	blobs   blob.Store
	apiKey  string
	baseURL string
	model   string
}

// NewStableDiffusion は登録名を指定して StableDiffusion プロバイダを生成します。
func NewStableDiffusion(name string, client *resty.Client, blobs blob.Store) *StableDiffusion {
	return &StableDiffusion{name: name, client: client, blobs: blobs}
}

func (p *StableDiffusion) Name() string { return p.name }

// Configure は api_key と api_url（どちらも必須）、model を読み込みます。
func (p *StableDiffusion) Configure(opts provider.Options) error {
	if p.client == nil || p.blobs == nil {
		return fmt.Errorf("%s: client と blob store は必須です", p.name)
	}
	p.apiKey = opts.Get("api_key", "")
	p.baseURL = strings.TrimRight(opts.Get("api_url", ""), "/")
	p.model = opts.Get("model", DefaultStableDiffusionModel)
	if p.apiKey == "" || p.baseURL == "" {
		return fmt.Errorf("%s: api_key と api_url は必須です", p.name)
	}
	return nil
}

// Synthesize は画像を同期的に生成し、保存先の参照を返します。
func (p *StableDiffusion) Synthesize(ctx context.Context, prompt string, params provider.ImageParams) (*provider.Synthesis, error) {
	merged := stableDiffusionDefaults.Merge(params)

	payload := map[string]any{
		"prompt":          prompt,
		"negative_prompt": merged.NegativePrompt,
		"model":           p.model,
		"width":           merged.Width,
		"height":          merged.Height,
		"steps":           merged.Steps,
		"cfg_scale":       merged.Guidance,
		"sampler":         merged.Sampler,
	}
	if merged.Seed != nil {
		payload["seed"] = *merged.Seed
	}
	for k, v := range merged.Extra {
		if v != nil {
			payload[k] = v
		}
	}

	var out text2imgResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetBody(payload).
		SetResult(&out).
		Post(p.baseURL + "/text2img")
	if err != nil {
		return nil, transportError(p.name, err)
	}
	if resp.IsError() {
		return nil, apiError(p.name, resp)
	}

	ref, err := p.reference(ctx, out)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "画像を生成しました", "provider", p.name, "reference", ref)
	return provider.Completed(ref), nil
}

// reference は応答形式に応じて画像参照を取り出し、base64 の場合は保存します。
func (p *StableDiffusion) reference(ctx context.Context, out text2imgResponse) (string, error) {
	var encoded string
	switch {
	case out.URL != "":
		return out.URL, nil
	case len(out.Images) > 0 && out.Images[0] != "":
		encoded = out.Images[0]
	case out.Output != nil && out.Output.Data != "":
		encoded = out.Output.Data
	default:
		return "", domain.NewProviderError(p.name, 0, "unexpected response format", domain.ErrParse)
	}

	ref, err := blob.PutBase64(ctx, p.blobs, encoded)
	if err != nil {
		return "", fmt.Errorf("%s: 画像の保存に失敗しました: %w", p.name, err)
	}
	return ref, nil
}
