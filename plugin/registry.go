package plugin

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Plugin)
)

// Register makes a plug-in constructor available under name. Plug-in
// packages call it from init; duplicate names panic.
func Register(name string, factory func() Plugin) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("plugin: Register called twice for %q", name))
	}
	registry[name] = factory
}

// New constructs a fresh instance of the named plug-in.
func New(name string) (Plugin, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown plugin %q (available: %v)", name, Names())
	}
	return factory(), nil
}

// Names returns the registered plug-in names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
