package provider

import (
	"maps"
	"time"
)

// ImageParams は画像生成の品質パラメータです。ゼロ値は「未指定」を意味します。
// パラメータ名の変換（Guidance を cfg_scale や scale へ写すなど）は各プロバイダの責務です。
type ImageParams struct {
	Width          int
	Height         int
	Steps          int
	Guidance       float64
	Sampler        string
	NegativePrompt string
	Seed           *int64
	Wait           *bool
	Timeout        time.Duration
	Extra          map[string]any
}

// Merge は override で指定されたフィールドだけを上書きした新しい ImageParams を返します。
func (p ImageParams) Merge(override ImageParams) ImageParams {
	out := p
	if override.Width > 0 {
		out.Width = override.Width
	}
	if override.Height > 0 {
		out.Height = override.Height
	}
	if override.Steps > 0 {
		out.Steps = override.Steps
	}
	if override.Guidance > 0 {
		out.Guidance = override.Guidance
	}
	if override.Sampler != "" {
		out.Sampler = override.Sampler
	}
	if override.NegativePrompt != "" {
		out.NegativePrompt = override.NegativePrompt
	}
	if override.Seed != nil {
		seed := *override.Seed
		out.Seed = &seed
	}
	if override.Wait != nil {
		wait := *override.Wait
		out.Wait = &wait
	}
	if override.Timeout > 0 {
		out.Timeout = override.Timeout
	}
	if len(p.Extra) > 0 || len(override.Extra) > 0 {
		out.Extra = make(map[string]any, len(p.Extra)+len(override.Extra))
		maps.Copy(out.Extra, p.Extra)
		maps.Copy(out.Extra, override.Extra)
	}
	return out
}

// ShouldWait は完了まで待機するかを返します。未指定の場合は待機します。
func (p ImageParams) ShouldWait() bool {
	return p.Wait == nil || *p.Wait
}

// WithSeed は seed を設定したコピーを返します。
func (p ImageParams) WithSeed(seed int64) ImageParams {
	return p.Merge(ImageParams{Seed: &seed})
}

// JobState は非同期ジョブの状態です。
type JobState string

const (
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// Synthesis は画像生成の結果です。
type Synthesis struct {
	Reference string
	JobID     string
	State     JobState
}

// Pending はジョブが完了していないかを判定します。
func (s Synthesis) Pending() bool {
	return s.State == JobProcessing
}

// Completed は参照付きの完了結果を作ります。
func Completed(ref string) *Synthesis {
	return &Synthesis{Reference: ref, State: JobCompleted}
}

// JobStatus はポーリング結果です。
type JobStatus struct {
	State     JobState
	Reference string
	Error     string
}
