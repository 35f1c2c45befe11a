package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Opener constructs a runtime. Openers run lazily, at Open time, so
// registering a backend costs nothing until a run selects it.
type Opener func() (Runtime, error)

var (
	runtimesMu sync.RWMutex
	runtimes   = make(map[string]Opener)
)

// Register makes a runtime available under the given name. Backends call it
// from an init function; importing a backend package is what links it in.
// Register panics on a duplicate name, like database/sql does for drivers.
func Register(name string, open Opener) {
	runtimesMu.Lock()
	defer runtimesMu.Unlock()
	if open == nil {
		panic("engine: Register opener is nil")
	}
	if _, dup := runtimes[name]; dup {
		panic("engine: Register called twice for runtime " + name)
	}
	runtimes[name] = open
}

// Open constructs the named runtime.
func Open(name string) (Runtime, error) {
	runtimesMu.RLock()
	open, ok := runtimes[name]
	runtimesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownRuntime, name, Runtimes())
	}
	rt, err := open()
	if err != nil {
		return nil, fmt.Errorf("open runtime %q: %w", name, err)
	}
	return rt, nil
}

// Runtimes lists the registered runtime names, sorted.
func Runtimes() []string {
	runtimesMu.RLock()
	defer runtimesMu.RUnlock()
	names := make([]string, 0, len(runtimes))
	for name := range runtimes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
