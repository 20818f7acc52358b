package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/parser"
	"github.com/shouni/go-manga-pipeline/pkg/prompts"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
)

const (
	OpenAIName           = "openai"
	DefaultOpenAIModel   = "gpt-4o"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatResponse は OpenAI 互換の chat/completions 応答エンベロープです。
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAI は OpenAI 互換 API を使う物語分解プロバイダです。
type OpenAI struct {
	doer    Doer
	apiKey  string
	model   string
	baseURL string
}

// NewOpenAI は OpenAI プロバイダを生成します。Configure を呼ぶまで利用できません。
func NewOpenAI(doer Doer) *OpenAI {
	return &OpenAI{doer: doer}
}

func (p *OpenAI) Name() string { return OpenAIName }

// Configure は api_key（必須）、model、base_url を読み込みます。
func (p *OpenAI) Configure(opts provider.Options) error {
	p.apiKey = opts.Get("api_key", "")
	p.model = opts.Get("model", DefaultOpenAIModel)
	p.baseURL = strings.TrimRight(opts.Get("base_url", DefaultOpenAIBaseURL), "/")
	return requireOption(OpenAIName, "api_key", p.apiKey)
}

// Decompose は物語をパネルに分解します。
func (p *OpenAI) Decompose(ctx context.Context, text string, panelCount int) (parser.Result, error) {
	body, err := p.complete(ctx, prompts.Decompose(text, panelCount))
	if err != nil {
		return parser.Result{}, err
	}
	return parser.Normalize(p.decode(body)), nil
}

// Invoke は汎用プロンプトを送り、応答本文を返します。
func (p *OpenAI) Invoke(ctx context.Context, prompt string) (string, error) {
	body, err := p.complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	content, ok := p.content(body)
	if !ok {
		return "", fmt.Errorf("%s: 応答本文を取り出せません (応答抜粋: %q): %w", OpenAIName, truncateString(string(body), 200), domain.ErrParse)
	}
	return content, nil
}

func (p *OpenAI) complete(ctx context.Context, prompt string) ([]byte, error) {
	req := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.SystemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	body, err := postJSON(ctx, p.doer, OpenAIName, p.baseURL+"/chat/completions", headers, req)
	if err != nil {
		return nil, err
	}

	var env chatResponse
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		return nil, domain.NewProviderError(OpenAIName, 0, env.Error.Message, nil)
	}
	return body, nil
}

// decode はエンベロープを一度だけ展開します。取り出せない場合は空の Envelope を返します。
func (p *OpenAI) decode(body []byte) parser.Raw {
	content, _ := p.content(body)
	return parser.FromPayload(OpenAIName, content)
}

// content は choices[0].message.content を取り出します。
func (p *OpenAI) content(body []byte) (string, bool) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Choices) == 0 {
		return "", false
	}
	return resp.Choices[0].Message.Content, true
}
