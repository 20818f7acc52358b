package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/parser"
	"github.com/shouni/go-manga-pipeline/pkg/prompts"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
)

const (
	HuggingFaceName           = "huggingface"
	DefaultHuggingFaceModel   = "mistralai/Mistral-7B-Instruct-v0.2"
	DefaultHuggingFaceBaseURL = "https://api-inference.huggingface.co/models"
)

type generatedText struct {
	GeneratedText string `json:"generated_text"`
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

// inferenceParameters の ReturnFullText を false にしないと、応答の先頭にプロンプトが付きます。
type inferenceParameters struct {
	ReturnFullText bool `json:"return_full_text"`
}

// HuggingFace は Inference API のテキスト生成モデルを使う物語分解プロバイダです。
type HuggingFace struct {
	doer     Doer
	apiKey   string
	model    string
	endpoint string
}

// NewHuggingFace は HuggingFace プロバイダを生成します。
func NewHuggingFace(doer Doer) *HuggingFace {
	return &HuggingFace{doer: doer}
}

func (p *HuggingFace) Name() string { return HuggingFaceName }

// Configure は api_key（必須）、model、base_url を読み込みます。
func (p *HuggingFace) Configure(opts provider.Options) error {
	p.apiKey = opts.Get("api_key", "")
	p.model = opts.Get("model", DefaultHuggingFaceModel)
	base := strings.TrimRight(opts.Get("base_url", DefaultHuggingFaceBaseURL), "/")
	endpoint, err := url.JoinPath(base, p.model)
	if err != nil {
		return fmt.Errorf("%s: エンドポイントの組み立てに失敗しました: %w", HuggingFaceName, err)
	}
	p.endpoint = endpoint
	return requireOption(HuggingFaceName, "api_key", p.apiKey)
}

// Decompose は物語をパネルに分解します。
func (p *HuggingFace) Decompose(ctx context.Context, text string, panelCount int) (parser.Result, error) {
	prompt := prompts.Decompose(text, panelCount)
	body, err := p.generate(ctx, prompt)
	if err != nil {
		return parser.Result{}, err
	}
	return parser.Normalize(p.decode(body, prompt)), nil
}

// Invoke は汎用プロンプトを送り、生成テキストを返します。
func (p *HuggingFace) Invoke(ctx context.Context, prompt string) (string, error) {
	body, err := p.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text, ok := p.text(body, prompt)
	if !ok {
		return "", fmt.Errorf("%s: 生成テキストを取り出せません (応答抜粋: %q): %w", HuggingFaceName, truncateString(string(body), 200), domain.ErrParse)
	}
	return text, nil
}

func (p *HuggingFace) generate(ctx context.Context, prompt string) ([]byte, error) {
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	body, err := postJSON(ctx, p.doer, HuggingFaceName, p.endpoint, headers, inferenceRequest{Inputs: prompt})
	if err != nil {
		return nil, err
	}

	// モデルのロード中などは {"error": "..."} が 200 で返ることがあります。
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return nil, domain.NewProviderError(HuggingFaceName, 0, apiErr.Error, nil)
	}
	return body, nil
}

// decode は [{"generated_text": ...}] または {"generated_text": ...} を一度だけ展開します。
func (p *HuggingFace) decode(body []byte, prompt string) parser.Raw {
	text, _ := p.text(body, prompt)
	return parser.FromPayload(HuggingFaceName, text)
}

// text は生成テキストを取り出します。return_full_text を無視するエンドポイントもあるため、
// 先頭に付いたプロンプトはここでも取り除きます。
func (p *HuggingFace) text(body []byte, prompt string) (string, bool) {
	var list []generatedText
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return "", false
		}
		return stripEcho(list[0].GeneratedText, prompt), true
	}
	var single generatedText
	if err := json.Unmarshal(body, &single); err == nil && single.GeneratedText != "" {
		return stripEcho(single.GeneratedText, prompt), true
	}
	return "", false
}

func stripEcho(text, prompt string) string {
	if prompt == "" {
		return text
	}
	if rest, ok := strings.CutPrefix(text, prompt); ok {
		return strings.TrimSpace(rest)
	}
	return text
}
