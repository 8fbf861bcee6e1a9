// Package adapter maps host Go types to backend column representations and
// back. Adapters are resolved at bind time, not at AST-construction time,
// so re-registering an adapter mid-session affects only future operations.
//
// The registry is process-wide and read-mostly: lookups go through an
// atomic snapshot and take no lock, registration copies the snapshot under
// a mutex.
package adapter

import (
	"database/sql/driver"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quarry-orm/quarry"
)

// Adapter converts values of one Go type to and from their database
// representation. Both directions must be pure functions of their input.
type Adapter struct {
	// GoType is the reflect string of the host type (e.g. "uuid.UUID").
	GoType string
	// DBType labels the column representation (e.g. "json", "uuid", "blob").
	DBType string
	// ToDatabase encodes a host value for binding.
	ToDatabase func(v any) (any, error)
	// FromDatabase decodes a column value into the host type.
	FromDatabase func(v any) (any, error)
}

// Overrides are explicit per-field adapters. They take precedence over
// registry-suggested defaults during resolution.
type Overrides map[string]Adapter

// Registry resolves adapters by Go type. The zero value is not usable; use
// NewRegistry or the process-wide Default.
type Registry struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[map[string]Adapter]
}

// NewRegistry returns a registry seeded with the built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{}
	m := make(map[string]Adapter)
	r.snapshot.Store(&m)
	for _, a := range builtins() {
		r.Register(a)
	}
	return r
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register installs an adapter, replacing any previous suggestion for the
// same Go type. Registration copies the snapshot; in-flight lookups keep
// reading the old one, and already-compiled queries are unaffected because
// adapters are applied at bind time.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := *r.snapshot.Load()
	next := make(map[string]Adapter, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[a.GoType] = a
	r.snapshot.Store(&next)
}

// Resolve returns the adapter suggested for the Go type, or an
// UnregisteredType error.
func (r *Registry) Resolve(goType string) (Adapter, error) {
	if a, ok := (*r.snapshot.Load())[goType]; ok {
		return a, nil
	}
	return Adapter{}, quarry.NewUnregisteredTypeError(goType)
}

// ResolveWith resolves with explicit per-field overrides taking precedence
// over registry suggestions.
func (r *Registry) ResolveWith(o Overrides, goType string) (Adapter, error) {
	if a, ok := o[goType]; ok {
		return a, nil
	}
	return r.Resolve(goType)
}

// ToDatabase encodes a value for binding. A registered adapter for the
// value's type wins; otherwise primitive driver-native values pass through
// untouched, and an unresolvable non-primitive type is an UnregisteredType
// error.
func (r *Registry) ToDatabase(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if a, err := r.Resolve(typeName(v)); err == nil {
		return a.ToDatabase(v)
	}
	if passThrough(v) {
		return v, nil
	}
	return nil, quarry.NewUnregisteredTypeError(typeName(v))
}

// FromDatabase decodes a column value into the given host type.
func (r *Registry) FromDatabase(goType string, v any) (any, error) {
	a, err := r.Resolve(goType)
	if err != nil {
		return nil, err
	}
	return a.FromDatabase(v)
}

// passThrough reports whether the value is handled natively by database
// drivers and needs no adapter.
func passThrough(v any) bool {
	switch v.(type) {
	case nil, bool, string, []byte,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, time.Time:
		return true
	case driver.Valuer:
		return true
	}
	return false
}

func typeName(v any) string {
	return reflect.TypeOf(v).String()
}
