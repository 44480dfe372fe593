package adapter

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Factory builds an unconnected row store driver.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	factories  = map[string]Factory{}
	aliases    = map[string]string{}
)

// Register makes a row store driver available under name and any aliases.
// Names are case-insensitive. Registering a taken name panics, as
// database/sql.Register does; drivers call this from init.
func Register(name string, factory Factory, alias ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name = strings.ToLower(name)
	if factory == nil {
		panic("adapter: Register factory is nil for " + name)
	}
	for _, n := range append([]string{name}, alias...) {
		n = strings.ToLower(n)
		if _, dup := factories[n]; dup {
			panic("adapter: Register called twice for " + n)
		}
		if _, dup := aliases[n]; dup {
			panic("adapter: Register called twice for " + n)
		}
	}
	factories[name] = factory
	for _, a := range alias {
		aliases[strings.ToLower(a)] = name
	}
}

// Canonical resolves a driver name or alias to its registered name.
// Unknown names come back lower-cased.
func Canonical(name string) string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return canonical(name)
}

func canonical(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if target, ok := aliases[name]; ok {
		return target
	}
	return name
}

// Get retrieves a driver factory by name or alias.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[canonical(name)]
	return f, ok
}

// NewAdapter creates the driver named by cfg.Type. A nil logger discards.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: ListAdapters(),
		}
	}
	return factory(logger), nil
}

// ListAdapters returns the registered driver names, sorted, without aliases.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}

// IsRegistered reports whether name or alias resolves to a driver.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError is returned when rows.driver names no registered driver.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown row store driver %q\nAvailable drivers: %v\nHint: Check rows.driver in labcms.yaml", e.Type, e.Available)
}
