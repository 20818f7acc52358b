package blob

import (
	"context"
	"encoding/base64"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu      sync.Mutex
	written map[string][]byte
	types   map[string]string
}

func (w *recordingWriter) Write(ctx context.Context, path string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.written == nil {
		w.written = map[string][]byte{}
		w.types = map[string]string{}
	}
	w.written[path] = data
	w.types[path] = contentType
	return nil
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func TestAssetStore_Put(t *testing.T) {
	w := &recordingWriter{}
	store, err := NewAssetStore(w, "output")
	require.NoError(t, err)

	t.Run("manga_panels 配下に一意な名前で保存されること", func(t *testing.T) {
		p1, err := store.Put(context.Background(), pngHeader, "image/png")
		require.NoError(t, err)
		p2, err := store.Put(context.Background(), pngHeader, "image/png")
		require.NoError(t, err)

		assert.NotEqual(t, p1, p2)
		assert.True(t, strings.Contains(p1, DefaultPanelDir), p1)
		assert.True(t, strings.HasSuffix(p1, ".png"), p1)
		assert.Equal(t, pngHeader, w.written[p1])
	})

	t.Run("MIME タイプ未指定なら内容から推定すること", func(t *testing.T) {
		p, err := store.Put(context.Background(), pngHeader, "")
		require.NoError(t, err)
		assert.Equal(t, "image/png", w.types[p])
	})

	t.Run("空データはエラーになること", func(t *testing.T) {
		_, err := store.Put(context.Background(), nil, "image/png")
		assert.Error(t, err)
	})

	t.Run("writer が nil なら生成に失敗すること", func(t *testing.T) {
		_, err := NewAssetStore(nil, "output")
		assert.Error(t, err)
	})
}

func TestDecodeBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngHeader)

	t.Run("データ URL の接頭辞を取り除き MIME を読み取ること", func(t *testing.T) {
		data, mime, err := DecodeBase64("data:image/jpeg;base64," + encoded)
		require.NoError(t, err)
		assert.Equal(t, pngHeader, data)
		assert.Equal(t, "image/jpeg", mime)
	})

	t.Run("接頭辞が無い場合は内容から推定すること", func(t *testing.T) {
		_, mime, err := DecodeBase64(encoded)
		require.NoError(t, err)
		assert.Equal(t, "image/png", mime)
	})

	t.Run("不正な base64 はエラーになること", func(t *testing.T) {
		_, _, err := DecodeBase64("%%%")
		assert.Error(t, err)
	})

	t.Run("PutBase64 は MemoryStore に保存できること", func(t *testing.T) {
		mem := NewMemoryStore()
		ref, err := PutBase64(context.Background(), mem, encoded)
		require.NoError(t, err)
		obj, ok := mem.Get(ref)
		require.True(t, ok)
		assert.Equal(t, pngHeader, obj.Data)
	})
}
