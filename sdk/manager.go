// Package sdk hosts the process-wide plugin registry. Plugins register
// themselves the way database/sql drivers do, typically from an init
// function or a TestMain, and consumers obtain an immutable view through
// Manager.
package sdk

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xpingli/qiime2/pkg/plugin"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*plugin.Plugin)
)

// Register records a plugin under its name. Registering a nil plugin, a
// plugin without a name, or the same name twice is a programmer error and
// panics, matching driver-registration semantics.
func Register(p *plugin.Plugin) {
	if p == nil {
		panic("sdk: Register called with nil plugin")
	}
	if p.Name() == "" {
		panic("sdk: Register called with unnamed plugin")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[p.Name()]; dup {
		panic(fmt.Sprintf("sdk: Register called twice for plugin %s", p.Name()))
	}
	registry[p.Name()] = p
}

// Reset clears the registry. Intended for tests that need isolation from
// package-level registration side effects.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]*plugin.Plugin)
}

// PluginManager is a point-in-time view over the registered plugins.
type PluginManager struct {
	plugins map[string]*plugin.Plugin
}

// Manager snapshots the current registry.
func Manager() *PluginManager {
	registryMu.RLock()
	defer registryMu.RUnlock()
	snapshot := make(map[string]*plugin.Plugin, len(registry))
	for name, p := range registry {
		snapshot[name] = p
	}
	return &PluginManager{plugins: snapshot}
}

// Plugins returns the name-to-plugin mapping. The map is a copy; the
// plugin pointers are shared.
func (m *PluginManager) Plugins() map[string]*plugin.Plugin {
	out := make(map[string]*plugin.Plugin, len(m.plugins))
	for name, p := range m.plugins {
		out[name] = p
	}
	return out
}

// Plugin returns the plugin registered under name.
func (m *PluginManager) Plugin(name string) (*plugin.Plugin, bool) {
	p, ok := m.plugins[name]
	return p, ok
}

// Names returns the sorted registered plugin names.
func (m *PluginManager) Names() []string {
	out := make([]string, 0, len(m.plugins))
	for name := range m.plugins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
