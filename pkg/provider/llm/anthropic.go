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
	AnthropicName           = "anthropic"
	DefaultAnthropicModel   = "claude-3-5-sonnet-latest"
	DefaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
	anthropicMaxTokens      = 2048
)

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system"`
	Messages  []chatMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Anthropic は Messages API を使う物語分解プロバイダです。
type Anthropic struct {
	doer    Doer
	apiKey  string
	model   string
	baseURL string
}

// NewAnthropic は Anthropic プロバイダを生成します。
func NewAnthropic(doer Doer) *Anthropic {
	return &Anthropic{doer: doer}
}

func (p *Anthropic) Name() string { return AnthropicName }

// Configure は api_key（必須）、model、base_url を読み込みます。
func (p *Anthropic) Configure(opts provider.Options) error {
	p.apiKey = opts.Get("api_key", "")
	p.model = opts.Get("model", DefaultAnthropicModel)
	p.baseURL = strings.TrimRight(opts.Get("base_url", DefaultAnthropicBaseURL), "/")
	return requireOption(AnthropicName, "api_key", p.apiKey)
}

// Decompose は物語をパネルに分解します。
func (p *Anthropic) Decompose(ctx context.Context, text string, panelCount int) (parser.Result, error) {
	resp, err := p.messages(ctx, prompts.Decompose(text, panelCount))
	if err != nil {
		return parser.Result{}, err
	}
	return parser.Normalize(parser.FromPayload(AnthropicName, resp.text())), nil
}

// Invoke は汎用プロンプトを送り、テキストブロックを連結して返します。
func (p *Anthropic) Invoke(ctx context.Context, prompt string) (string, error) {
	resp, err := p.messages(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := resp.text()
	if text == "" {
		return "", fmt.Errorf("%s: テキストブロックがありません: %w", AnthropicName, domain.ErrParse)
	}
	return text, nil
}

func (p *Anthropic) messages(ctx context.Context, prompt string) (*messagesResponse, error) {
	req := messagesRequest{
		Model:     p.model,
		MaxTokens: anthropicMaxTokens,
		System:    prompts.SystemPrompt,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}
	body, err := postJSON(ctx, p.doer, AnthropicName, p.baseURL+"/messages", headers, req)
	if err != nil {
		return nil, err
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		// エンベロープが壊れていても分解は劣化扱いで続行できるよう、空の応答として扱います。
		return &messagesResponse{}, nil
	}
	if resp.Error != nil {
		return nil, domain.NewProviderError(AnthropicName, 0, resp.Error.Message, nil)
	}
	return &resp, nil
}

func (r *messagesResponse) text() string {
	var sb strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" || block.Type == "" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}
