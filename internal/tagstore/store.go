// Package tagstore implements the shared process-wide tag database that
// couples the simulator, PLC, HMI, and attacker processes. It follows the
// same sync.RWMutex-guarded map shape as the device registry this module is
// modeled on, generalized from device/station entries to scalar tag cells.
package tagstore

import (
	"fmt"
	"sync"
)

// Store is the narrow {get, set, initialize} contract every Tag Store
// binding implements. Implementations must make writes atomic per tag and
// must make a write visible to subsequent reads from any process within one
// tick of the writer's period.
type Store interface {
	// Initialize declares every tag in pairs and writes its default value.
	// Initialize is called once at startup by the first component to bring
	// up the store; it is idempotent when repeated with the same defaults.
	Initialize(pairs map[string]float64) error
	// Get returns the current value of name, or ErrTagUnknown /
	// ErrTagUninitialized.
	Get(name string) Result[float64]
	// Set overwrites the current value of name unconditionally, or returns
	// ErrTagUnknown.
	Set(name string, value float64) error
	// Names returns the full set of declared tag names.
	Names() []string
}

// Memory is the default in-process Tag Store binding: a single RWMutex
// guarding a map of tag name to cell, matching the registry's concurrency
// shape. Readers take the read lock so concurrent ticks from independent
// components never block each other on distinct tags' worth of contention
// (the map itself is still one lock; per the concurrency model this is
// acceptable because tick bodies never suspend while holding it).
type Memory struct {
	mu    sync.RWMutex
	cells map[string]*cell
}

type cell struct {
	value float64
	set   bool
}

// NewMemory constructs an empty in-memory Tag Store. Call Initialize before
// any Get/Set.
func NewMemory() *Memory {
	return &Memory{cells: make(map[string]*cell)}
}

// Initialize declares pairs and writes their defaults. Tags not already
// present are created; tags already present have their default reapplied,
// making repeated initialization idempotent.
func (m *Memory) Initialize(pairs map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, def := range pairs {
		m.cells[name] = &cell{value: def, set: true}
	}
	return nil
}

// Get returns the current value, or ErrTagUnknown/ErrTagUninitialized.
func (m *Memory) Get(name string) Result[float64] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cells[name]
	if !ok {
		return Err[float64](fmt.Errorf("%w: %s", ErrTagUnknown, name))
	}
	if !c.set {
		return Err[float64](fmt.Errorf("%w: %s", ErrTagUninitialized, name))
	}
	return Ok(c.value)
}

// Set overwrites the current value unconditionally. Set never fails for a
// torn value: the write replaces the whole cell under the lock.
func (m *Memory) Set(name string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cells[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTagUnknown, name)
	}
	c.value = value
	c.set = true
	return nil
}

// Names returns the declared tag names in no particular order.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.cells))
	for name := range m.cells {
		names = append(names, name)
	}
	return names
}
