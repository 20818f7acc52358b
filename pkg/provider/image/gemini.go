package image

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/shouni/gemini-image-kit/imgutil"
	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"

	"github.com/shouni/go-manga-pipeline/pkg/blob"
	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
)

const (
	GeminiImageName         = "gemini-image"
	DefaultGeminiImageModel = "gemini-2.5-flash-image"
	defaultJPEGQuality      = 90
)

// supportedAspectRatios は Gemini の ImageConfig が受け付けるアスペクト比です。
var supportedAspectRatios = []struct {
	label string
	ratio float64
}{
	{"1:1", 1}, {"2:3", 2.0 / 3}, {"3:2", 1.5}, {"3:4", 0.75}, {"4:3", 4.0 / 3},
	{"4:5", 0.8}, {"5:4", 1.25}, {"9:16", 9.0 / 16}, {"16:9", 16.0 / 9}, {"21:9", 21.0 / 9},
}

// PartsGenerator は gemini.Client が満たす生成の契約です。
type PartsGenerator interface {
	GenerateWithParts(ctx context.Context, modelName string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

// GeminiImage は Gemini の画像出力モデルを使う画像生成プロバイダです。
type GeminiImage struct {
	client  PartsGenerator
	blobs   blob.Store
	model   string
	quality int
}

// NewGeminiImage は GeminiImage プロバイダを生成します。
func NewGeminiImage(client PartsGenerator, blobs blob.Store) *GeminiImage {
	return &GeminiImage{client: client, blobs: blobs}
}

func (p *GeminiImage) Name() string { return GeminiImageName }

// Configure は model を読み込みます。
func (p *GeminiImage) Configure(opts provider.Options) error {
	if p.client == nil || p.blobs == nil {
		return fmt.Errorf("%s: gemini クライアントと blob store は必須です", GeminiImageName)
	}
	p.model = opts.Get("model", DefaultGeminiImageModel)
	p.quality = defaultJPEGQuality
	return nil
}

// Synthesize は画像を生成し、JPEG に圧縮して保存した参照を返します。
func (p *GeminiImage) Synthesize(ctx context.Context, prompt string, params provider.ImageParams) (*provider.Synthesis, error) {
	text := prompt
	if params.NegativePrompt != "" {
		text += "\nAvoid: " + params.NegativePrompt
	}

	opts := gemini.GenerateOptions{
		Seed:             params.Seed,
		PersonGeneration: gemini.PersonGenerationAllowAll,
	}
	if params.Width > 0 && params.Height > 0 {
		opts.AspectRatio = aspectRatio(params.Width, params.Height)
	}

	resp, err := p.client.GenerateWithParts(ctx, p.model, []*genai.Part{{Text: text}}, opts)
	if err != nil {
		return nil, domain.NewProviderError(GeminiImageName, 0, "generate content failed", err)
	}

	data, mimeType := firstImage(resp)
	if len(data) == 0 {
		return nil, domain.NewProviderError(GeminiImageName, 0, "no image data in response", domain.ErrParse)
	}

	compressed, err := imgutil.CompressToJPEG(bytes.NewReader(data), p.quality)
	if err != nil {
		// 圧縮できない形式は元のまま保存します。
		compressed = data
	} else {
		mimeType = "image/jpeg"
	}

	ref, err := p.blobs.Put(ctx, compressed, mimeType)
	if err != nil {
		return nil, fmt.Errorf("%s: 画像の保存に失敗しました: %w", GeminiImageName, err)
	}
	return provider.Completed(ref), nil
}

// firstImage は最初の生成画像と MIME タイプを返します。
func firstImage(resp *gemini.Response) ([]byte, string) {
	if resp == nil || len(resp.Images) == 0 {
		return nil, ""
	}
	data := resp.Images[0]
	if mimeType := inlineMIMEType(resp.RawResponse); mimeType != "" {
		return data, mimeType
	}
	return data, http.DetectContentType(data)
}

func inlineMIMEType(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.MIMEType
			}
		}
	}
	return ""
}

// aspectRatio は幅と高さに最も近い対応アスペクト比を返します。
func aspectRatio(width, height int) string {
	target := float64(width) / float64(height)
	best, bestDiff := "1:1", math.MaxFloat64
	for _, ar := range supportedAspectRatios {
		if diff := math.Abs(ar.ratio - target); diff < bestDiff {
			best, bestDiff = ar.label, diff
		}
	}
	return best
}
