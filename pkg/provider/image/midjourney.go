package image

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
)

const (
	MidjourneyName           = "midjourney"
	DefaultMidjourneyBaseURL = "https://api.midjourney.com/v1"
)

var midjourneyDefaults = provider.ImageParams{
	Width:   1024,
	Height:  1024,
	Timeout: provider.DefaultPollTimeout,
	Extra: map[string]any{
		"style":   "manga",
		"quality": "standard",
	},
}

type imagineResponse struct {
	JobID string `json:"job_id"`
}

type jobResponse struct {
	Status   string `json:"status"`
	ImageURL string `json:"image_url"`
	Error    string `json:"error"`
}

// Midjourney はジョブ投入とポーリングで画像を生成する非同期プロバイダです。
type Midjourney struct {
	client       *resty.Client
	apiKey       string
	baseURL      string
	pollInterval time.Duration
}

// NewMidjourney は Midjourney プロバイダを生成します。
func NewMidjourney(client *resty.Client) *Midjourney {
	return &Midjourney{client: client}
}

func (p *Midjourney) Name() string { return MidjourneyName }

// Configure は api_key（必須）、api_url、poll_interval（例: "5s"）を読み込みます。
func (p *Midjourney) Configure(opts provider.Options) error {
	if p.client == nil {
		return fmt.Errorf("%s: client は必須です", MidjourneyName)
	}
	p.apiKey = opts.Get("api_key", "")
	p.baseURL = strings.TrimRight(opts.Get("api_url", DefaultMidjourneyBaseURL), "/")
	p.pollInterval = provider.DefaultPollInterval
	if v := opts.Get("poll_interval", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: poll_interval の解析に失敗しました: %w", MidjourneyName, err)
		}
		p.pollInterval = d
	}
	if p.apiKey == "" {
		return fmt.Errorf("%s: api_key は必須です", MidjourneyName)
	}
	return nil
}

// Synthesize はジョブを投入します。待機する場合は完了まで一定間隔でポーリングし、画像 URL を返します。
func (p *Midjourney) Synthesize(ctx context.Context, prompt string, params provider.ImageParams) (*provider.Synthesis, error) {
	merged := midjourneyDefaults.Merge(params)

	var out imagineResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetBody(p.buildPayload(prompt, merged)).
		SetResult(&out).
		Post(p.baseURL + "/imagine")
	if err != nil {
		return nil, transportError(MidjourneyName, err)
	}
	if resp.IsError() {
		return nil, apiError(MidjourneyName, resp)
	}
	if out.JobID == "" {
		return nil, domain.NewProviderError(MidjourneyName, resp.StatusCode(), "no job id returned", nil)
	}

	slog.InfoContext(ctx, "画像生成ジョブを投入しました", "provider", MidjourneyName, "job_id", out.JobID)
	if !merged.ShouldWait() {
		return &provider.Synthesis{JobID: out.JobID, State: provider.JobProcessing}, nil
	}

	ref, err := provider.WaitForJob(ctx, p, out.JobID, p.pollInterval, merged.Timeout)
	if err != nil {
		return nil, err
	}
	return &provider.Synthesis{Reference: ref, JobID: out.JobID, State: provider.JobCompleted}, nil
}

// PollStatus はジョブの状態を一度だけ確認します。
func (p *Midjourney) PollStatus(ctx context.Context, jobID string) (*provider.JobStatus, error) {
	var out jobResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetPathParam("id", jobID).
		SetResult(&out).
		Get(p.baseURL + "/job/{id}")
	if err != nil {
		return nil, transportError(MidjourneyName, err)
	}
	if resp.IsError() {
		return nil, apiError(MidjourneyName, resp)
	}

	status := &provider.JobStatus{Reference: out.ImageURL, Error: out.Error}
	switch out.Status {
	case "completed":
		status.State = provider.JobCompleted
	case "failed":
		status.State = provider.JobFailed
	default:
		status.State = provider.JobProcessing
	}
	return status, nil
}

// buildPayload は幅と高さを "WxH" の dimensions にまとめ、残りの指定をそのまま渡します。
func (p *Midjourney) buildPayload(prompt string, params provider.ImageParams) map[string]any {
	payload := map[string]any{
		"prompt":     prompt,
		"dimensions": fmt.Sprintf("%dx%d", params.Width, params.Height),
	}
	if params.Steps > 0 {
		payload["steps"] = params.Steps
	}
	if params.Guidance > 0 {
		payload["cfg_scale"] = params.Guidance
	}
	if params.Seed != nil {
		payload["seed"] = *params.Seed
	}
	if params.NegativePrompt != "" {
		payload["negative_prompt"] = params.NegativePrompt
	}
	for k, v := range params.Extra {
		if v != nil {
			payload[k] = v
		}
	}
	return payload
}
