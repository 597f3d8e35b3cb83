package uploadkit

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// DriverFactory builds a FileSystem from configuration. Each driver
// package registers one under its name.
type DriverFactory func(cfg *Config) (FileSystem, error)

var registry = struct {
	sync.RWMutex
	factories map[string]DriverFactory
}{factories: make(map[string]DriverFactory)}

// RegisterDriver registers a driver factory function. Drivers call this
// from their init functions, so importing a driver package for side
// effects is enough to make it available.
func RegisterDriver(name string, factory DriverFactory) {
	registry.Lock()
	defer registry.Unlock()
	registry.factories[name] = factory
}

// CreateDriver instantiates the driver named by cfg.Driver.
func CreateDriver(cfg *Config) (FileSystem, error) {
	registry.RLock()
	factory, ok := registry.factories[cfg.Driver]
	registry.RUnlock()

	if !ok {
		return nil, fmt.Errorf("driver %s not registered", cfg.Driver)
	}
	return factory(cfg)
}

// RegisteredDrivers returns the registered driver names, sorted.
func RegisteredDrivers() []string {
	registry.RLock()
	defer registry.RUnlock()
	return slices.Sorted(maps.Keys(registry.factories))
}
