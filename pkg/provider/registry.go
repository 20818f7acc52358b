package provider

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/shouni/go-manga-pipeline/pkg/domain"
)

type registryKey struct {
	capability Capability
	name       string
}

// Registry は (機能, 名前) の組で設定済みプロバイダを引くための登録簿です。
// 起動時に登録し、以降は主に読み取りで使われます。同じ組への再登録は後勝ちです。
type Registry struct {
	mu        sync.RWMutex
	instances map[registryKey]Configurable
}

// NewRegistry は空の Registry を生成します。
func NewRegistry() *Registry {
	return &Registry{instances: make(map[registryKey]Configurable)}
}

// Register は設定済みインスタンスを登録します。インスタンスが機能のインターフェースを満たさない場合はエラーです。
func (r *Registry) Register(capability Capability, name string, instance Configurable) error {
	if instance == nil {
		return fmt.Errorf("provider %q: instance は必須です", name)
	}
	switch capability {
	case CapabilityNarrative:
		if _, ok := instance.(NarrativeProvider); !ok {
			return fmt.Errorf("provider %q は %s を実装していません", name, capability)
		}
	case CapabilityImage:
		if _, ok := instance.(ImageProvider); !ok {
			return fmt.Errorf("provider %q は %s を実装していません", name, capability)
		}
	default:
		return fmt.Errorf("未知の capability です: %q", capability)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey{capability: capability, name: name}
	if _, exists := r.instances[key]; exists {
		slog.Debug("既存のプロバイダを置き換えます", "capability", capability, "name", name)
	}
	r.instances[key] = instance
	return nil
}

// Lookup は登録済みインスタンスを返します。未登録なら domain.ErrNotFound を返します。
func (r *Registry) Lookup(capability Capability, name string) (Configurable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	instance, ok := r.instances[registryKey{capability: capability, name: name}]
	if !ok {
		return nil, fmt.Errorf("%s provider %q: %w", capability, name, domain.ErrNotFound)
	}
	return instance, nil
}

// Narrative は物語分解プロバイダを返します。
func (r *Registry) Narrative(name string) (NarrativeProvider, error) {
	instance, err := r.Lookup(CapabilityNarrative, name)
	if err != nil {
		return nil, err
	}
	return instance.(NarrativeProvider), nil
}

// Image は画像生成プロバイダを返します。
func (r *Registry) Image(name string) (ImageProvider, error) {
	instance, err := r.Lookup(CapabilityImage, name)
	if err != nil {
		return nil, err
	}
	return instance.(ImageProvider), nil
}

// Names は指定した機能で登録されている名前をソートして返します。
func (r *Registry) Names(capability Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for key := range r.instances {
		if key.capability == capability {
			names = append(names, key.name)
		}
	}
	slices.Sort(names)
	return names
}
