package image

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

const (
	defaultRetryCount    = 2
	defaultRetryWaitTime = 2 * time.Second
)

// NewRestClient は画像生成 API 向けの resty クライアントを生成します。
// 429 と一時的な 5xx だけを再試行し、ジョブの二重投入につながる他の失敗は再試行しません。
func NewRestClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(defaultRetryWaitTime).
		SetRetryAfter(func(client *resty.Client, resp *resty.Response) (time.Duration, error) {
			if resp != nil && resp.StatusCode() == http.StatusTooManyRequests {
				if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
					if seconds, err := strconv.Atoi(retryAfter); err == nil {
						return time.Duration(seconds) * time.Second, nil
					}
				}
			}
			return defaultRetryWaitTime, nil
		}).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil || r == nil {
				return false
			}
			switch r.StatusCode() {
			case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				return true
			}
			return false
		})
}

// apiError は非 2xx 応答を ProviderError に変換します。
func apiError(provider string, resp *resty.Response) error {
	return domain.NewProviderError(provider, resp.StatusCode(), truncateString(resp.String(), 300), nil)
}

// transportError は通信そのものの失敗を ProviderError に包みます。
func transportError(provider string, err error) error {
	return domain.NewProviderError(provider, 0, "request failed", err)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
