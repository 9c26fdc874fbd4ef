package kv

import (
	"context"
	"fmt"
	"sync"
)

// Factory opens an engine from a Config.
type Factory func(context.Context, Config) (Store, error)

var (
	regMu    sync.RWMutex
	registry = make(map[string]Factory)
)

// Register makes an engine available to Open under the given name.
// Engine packages call this from init.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

// Open opens the named engine with cfg.
func Open(ctx context.Context, name string, cfg Config) (Store, error) {
	regMu.RLock()
	f, ok := registry[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine %s not found in registry", name)
	}
	return f(ctx, cfg)
}

// Engines lists the registered engine names.
func Engines() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
