package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

// Doer は HTTP リクエストを実行してボディを返すクライアントです。
// httpkit.New が返すクライアントがこれを満たし、非 2xx 応答はエラーとして返されます。
type Doer interface {
	DoRequest(req *http.Request) ([]byte, error)
}

// postJSON は JSON ボディを POST し、応答ボディを返します。失敗は ProviderError に包みます。
func postJSON(ctx context.Context, doer Doer, provider, url string, headers map[string]string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: リクエストのエンコードに失敗しました: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: リクエストの作成に失敗しました: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	data, err := doer.DoRequest(req)
	if err != nil {
		return nil, domain.NewProviderError(provider, 0, "request failed", err)
	}
	return data, nil
}

func requireOption(provider, key, value string) error {
	if value == "" {
		return fmt.Errorf("%s: 設定 %q は必須です", provider, key)
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
