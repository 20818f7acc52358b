package blob

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore はプロセス内に画像を保持する Store です。テストやドライランで使います。
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Object
}

// Object は保存された画像です。
type Object struct {
	Data     []byte
	MimeType string
}

// NewMemoryStore は空の MemoryStore を生成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Object)}
}

// Put は画像を保存し、mem:// で始まる参照を返します。
func (m *MemoryStore) Put(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("memory_store: 空の画像データは保存できません")
	}
	ref := "mem://" + DefaultPanelDir + "/" + uuid.NewString() + extensionFor(mimeType)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[ref] = Object{Data: append([]byte(nil), data...), MimeType: mimeType}
	return ref, nil
}

// Get は保存済みの画像を返します。
func (m *MemoryStore) Get(ref string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.items[ref]
	return obj, ok
}

// Len は保存件数を返します。
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
