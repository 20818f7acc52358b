package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

const (
	// DefaultPollInterval はジョブ状態を確認する間隔です。
	DefaultPollInterval = 5 * time.Second
	// DefaultPollTimeout はジョブ完了を待つ上限時間です。
	DefaultPollTimeout = 120 * time.Second
)

var errJobPending = errors.New("job still processing")

// WaitForJob は一定間隔でジョブ状態を確認し、完了時に画像参照を返します。
// timeout を過ぎると domain.TimeoutError、ジョブ失敗時は domain.ProviderError を返します。
// 親 ctx のキャンセルはそのまま ctx.Err() として返します。
func WaitForJob(ctx context.Context, poller JobPoller, jobID string, interval, timeout time.Duration) (string, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := slog.With("provider", poller.Name(), "job_id", jobID)
	var reference string
	attempts := 0

	operation := func() error {
		attempts++
		status, err := poller.PollStatus(waitCtx, jobID)
		if err != nil {
			return backoff.Permanent(err)
		}

		switch status.State {
		case JobCompleted:
			if status.Reference == "" {
				return backoff.Permanent(domain.NewProviderError(poller.Name(), 0, "job completed but no image reference returned", nil))
			}
			reference = status.Reference
			return nil
		case JobFailed:
			msg := status.Error
			if msg == "" {
				msg = "unknown error"
			}
			return backoff.Permanent(domain.NewProviderError(poller.Name(), 0, "image generation failed: "+msg, nil))
		default:
			logger.Debug("ジョブは処理中です", "attempt", attempts)
			return errJobPending
		}
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.NewConstantBackOff(interval), waitCtx))
	if err == nil {
		logger.Info("ジョブが完了しました", "attempts", attempts)
		return reference, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if waitCtx.Err() != nil {
		return "", &domain.TimeoutError{JobID: jobID, After: timeout}
	}
	return "", fmt.Errorf("job %s: %w", jobID, err)
}
