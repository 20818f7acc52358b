package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQuotaExceeded は月間ページ上限に達したことを示します。再試行しても成功しません。
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrNotFound は未登録のプロバイダや存在しないテンプレート・モデルを示します。
	ErrNotFound = errors.New("not found")
	// ErrParse はプロバイダ応答の解析に失敗したことを示します。通常はフォールバックで回復します。
	ErrParse = errors.New("parse error")
	// ErrProvider は外部 AI サービス呼び出しの失敗を示します。
	ErrProvider = errors.New("provider error")
	// ErrTimeout は非同期ジョブの待機がタイムアウトしたことを示します。
	ErrTimeout = errors.New("timeout")
)

// ProviderError は外部 AI サービスの通信・認証・レート制限エラーです。
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

// NewProviderError は ProviderError を生成します。
func NewProviderError(provider string, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, StatusCode: statusCode, Message: message, Err: err}
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s", e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is は errors.Is(err, ErrProvider) を成立させます。
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// TimeoutError は画像生成ジョブのポーリングが上限時間を超えたことを示します。
type TimeoutError struct {
	JobID string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job %s timed out after %s", e.JobID, e.After)
}

// Is は errors.Is(err, ErrTimeout) を成立させます。
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// IsQuotaExceeded は err が ErrQuotaExceeded を含むかを判定します。
func IsQuotaExceeded(err error) bool { return errors.Is(err, ErrQuotaExceeded) }

// IsNotFound は err が ErrNotFound を含むかを判定します。
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
