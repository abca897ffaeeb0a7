package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrUnknownAdapter matches every UnknownAdapterError.
var ErrUnknownAdapter = errors.New("unknown adapter")

// Factory builds an unconnected warehouse adapter.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register makes a warehouse available under name. Adapters call it from
// init(); registering an empty or duplicate name panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if name == "" || factory == nil {
		panic("adapter: Register needs a name and a factory")
	}
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("adapter: %q registered twice", name))
	}
	factories[name] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// NewAdapter builds the adapter selected by cfg.Type. It is not connected
// yet. A nil logger discards output; otherwise logs carry the adapter type.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger.With(slog.String("adapter", cfg.Type))), nil
}

// ListAdapters returns the registered warehouse names, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}

// IsRegistered reports whether a warehouse named name is available.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError is returned when target.type names no registered warehouse.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %s); set target.type in orderlake.yaml or ORDERLAKE_TARGET_TYPE",
		e.Type, strings.Join(e.Available, ", "))
}

// Is lets errors.Is match ErrUnknownAdapter.
func (e *UnknownAdapterError) Is(target error) bool {
	return target == ErrUnknownAdapter
}
