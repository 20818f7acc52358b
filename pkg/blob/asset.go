package blob

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/shouni/go-utils/urlpath"
)

// DefaultPanelDir は生成されたパネル画像を格納するディレクトリ名です。
const DefaultPanelDir = "manga_panels"

// Store は画像データを保存し、後から参照できるパスまたは URL を返します。
type Store interface {
	Put(ctx context.Context, data []byte, mimeType string) (string, error)
}

// OutputWriter はデータを外部ストレージ（ローカルまたは gs://）に保存するためのインターフェースです。
// remoteio.OutputWriter と同じ形をしています。
type OutputWriter interface {
	Write(ctx context.Context, path string, r io.Reader, contentType string) error
}

// AssetStore は OutputWriter の上に一意なファイル名での保存を提供します。
type AssetStore struct {
	writer  OutputWriter
	baseDir string // 保存先のベースディレクトリ (例: "output" や "gs://bucket/manga")
}

// NewAssetStore は AssetStore を生成します。
func NewAssetStore(writer OutputWriter, baseDir string) (*AssetStore, error) {
	if writer == nil {
		return nil, fmt.Errorf("writer は必須です")
	}
	return &AssetStore{writer: writer, baseDir: baseDir}, nil
}

// Put は画像データを manga_panels/<uuid>.<ext> として保存し、その保存先のパスを返します。
func (s *AssetStore) Put(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("asset_store: 空の画像データは保存できません")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	fileName := path.Join(DefaultPanelDir, uuid.NewString()+extensionFor(mimeType))
	fullPath, err := urlpath.ResolveOutputPath(s.baseDir, fileName)
	if err != nil {
		return "", fmt.Errorf("asset_store: 出力パスの解決に失敗しました: %w", err)
	}

	if err := s.writer.Write(ctx, fullPath, bytes.NewReader(data), mimeType); err != nil {
		return "", fmt.Errorf("asset_store: 画像の保存に失敗しました (path: %s): %w", fullPath, err)
	}
	return fullPath, nil
}

// PutBase64 は base64 文字列（"data:image/png;base64," 接頭辞付きも可）をデコードして保存します。
func PutBase64(ctx context.Context, store Store, encoded string) (string, error) {
	data, mimeType, err := DecodeBase64(encoded)
	if err != nil {
		return "", err
	}
	return store.Put(ctx, data, mimeType)
}

// DecodeBase64 はデータ URL の接頭辞を取り除いてデコードします。MIME タイプは接頭辞か内容から推定します。
func DecodeBase64(encoded string) ([]byte, string, error) {
	mimeType := ""
	if head, body, ok := strings.Cut(encoded, ","); ok {
		if strings.HasPrefix(head, "data:") {
			mimeType, _, _ = strings.Cut(strings.TrimPrefix(head, "data:"), ";")
		}
		encoded = body
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, "", fmt.Errorf("base64 画像のデコードに失敗しました: %w", err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
