package provider

import (
	"context"

	"github.com/shouni/go-manga-pipeline/pkg/parser"
)

// Capability はプロバイダが提供する機能の種別です。
type Capability string

const (
	CapabilityNarrative Capability = "narrative-decomposition"
	CapabilityImage     Capability = "image-synthesis"
)

// Options は Configure 時に渡される自由形式の設定（API キー、エンドポイント、既定モデルなど）です。
type Options map[string]string

// Get はキーの値を返し、未設定または空なら def を返します。
func (o Options) Get(key, def string) string {
	if v, ok := o[key]; ok && v != "" {
		return v
	}
	return def
}

// Configurable は「一度設定してから呼び出す」共通契約です。
type Configurable interface {
	// Name はログやエラーに使うプロバイダ名を返します。
	Name() string
	// Configure は設定を読み込みます。呼び出し前に一度だけ実行されることを想定しています。
	Configure(opts Options) error
}

// NarrativeProvider は物語をパネル説明と画像プロンプトの列に分解する LLM 系プロバイダです。
type NarrativeProvider interface {
	Configurable
	// Decompose は物語を分解します。返される件数は panelCount と異なることがあり、呼び出し側はその件数を正とします。
	// 通信失敗は ProviderError、解析の劣化は Result.Degraded で表現されます。
	Decompose(ctx context.Context, text string, panelCount int) (parser.Result, error)
	// Invoke は汎用プロンプトを送り、生のテキスト応答を返します。
	Invoke(ctx context.Context, prompt string) (string, error)
}

// ImageProvider はプロンプトから画像を生成するプロバイダです。
type ImageProvider interface {
	Configurable
	// Synthesize は画像を生成し、参照（URL やストレージパス）を返します。
	// 非同期ジョブで待機しない場合は JobID と処理中状態を返します。
	Synthesize(ctx context.Context, prompt string, params ImageParams) (*Synthesis, error)
}

// JobPoller はバックグラウンドジョブとして画像を生成するプロバイダのポーリング契約です。
type JobPoller interface {
	Name() string
	PollStatus(ctx context.Context, jobID string) (*JobStatus, error)
}
