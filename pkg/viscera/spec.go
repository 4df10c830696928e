// Package viscera maps the remote API's JSON documents onto objects with
// identity, change tracking, and lazily-resolved relationships. Resource
// types are declared once at package initialisation with symbolic handler
// names; NewOrigin later binds every declared type to a session's actual
// handlers, so declaration never needs a live connection.
package viscera

import (
	"fmt"
	"sync"
)

// FieldSpec declares one field of an object type.
type FieldSpec struct {
	// Name is the field's accessor name, e.g. "hostname".
	Name string

	// Datum is the wire key holding the field's data. Defaults to Name.
	Datum string

	// ReadOnly rejects Set on this field.
	ReadOnly bool

	// PK marks the field as (part of) the primary key: readable on
	// unloaded objects and used to resolve URI parameters.
	PK bool

	// AltPK marks an alternative key with the same unloaded-read
	// privileges as PK.
	AltPK bool

	// Default is returned by Get when the datum is absent. Guarded by
	// HasDefault so that nil can itself be a default.
	Default    any
	HasDefault bool

	// ToValue converts the wire datum to the field's value. Identity when
	// nil. The object is passed so conversions can reach its origin.
	ToValue func(o *Object, datum any) (any, error)

	// ToDatum converts a value back to its wire form. Identity when nil.
	ToDatum func(value any) (any, error)

	// ListOps routes changes to a list field through per-element add and
	// remove operations instead of the generic update diff.
	ListOps *ListOps
}

// ListOps names the per-element operations for a list field, plus the
// parameter each element is passed as.
type ListOps struct {
	Add    string
	Remove string
	Param  string
}

func (f *FieldSpec) datum() string {
	if f.Datum != "" {
		return f.Datum
	}
	return f.Name
}

func (f *FieldSpec) isKey() bool {
	return f.PK || f.AltPK
}

// TypeSpec declares one object type and the handler it binds to.
type TypeSpec struct {
	// Name is the registry name, e.g. "Machine".
	Name string

	// Handler is the session handler name to bind to. Defaults to Name.
	Handler string

	Fields []FieldSpec
}

func (t *TypeSpec) handlerName() string {
	if t.Handler != "" {
		return t.Handler
	}
	return t.Name
}

// SetSpec declares one collection type: the handler serving the
// collection and the registered object type of its elements.
type SetSpec struct {
	// Name is the registry name, e.g. "Machines".
	Name string

	// Handler is the session handler name to bind to. Defaults to Name.
	Handler string

	// Object is the registry name of the element type.
	Object string
}

func (s *SetSpec) handlerName() string {
	if s.Handler != "" {
		return s.Handler
	}
	return s.Name
}

var registry = struct {
	mu    sync.RWMutex
	types map[string]*TypeSpec
	sets  map[string]*SetSpec
}{
	types: make(map[string]*TypeSpec),
	sets:  make(map[string]*SetSpec),
}

// Register adds an object type to the process-wide registry. It is meant
// to be called from init and panics on duplicate or malformed specs.
func Register(spec TypeSpec) {
	if spec.Name == "" {
		panic("viscera: cannot register a type without a name")
	}
	seen := make(map[string]struct{}, len(spec.Fields))
	for _, field := range spec.Fields {
		if field.Name == "" {
			panic(fmt.Sprintf(
				"viscera: type %q declares a field without a name", spec.Name))
		}
		if _, dup := seen[field.Name]; dup {
			panic(fmt.Sprintf(
				"viscera: type %q declares field %q twice", spec.Name, field.Name))
		}
		seen[field.Name] = struct{}{}
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, dup := registry.types[spec.Name]; dup {
		panic(fmt.Sprintf("viscera: type %q already registered", spec.Name))
	}
	registry.types[spec.Name] = &spec
}

// RegisterSet adds a collection type to the registry. Panics on duplicate
// names, like Register.
func RegisterSet(spec SetSpec) {
	if spec.Name == "" || spec.Object == "" {
		panic("viscera: cannot register a set without a name and object type")
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, dup := registry.sets[spec.Name]; dup {
		panic(fmt.Sprintf("viscera: set %q already registered", spec.Name))
	}
	registry.sets[spec.Name] = &spec
}

func registeredTypes() map[string]*TypeSpec {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	types := make(map[string]*TypeSpec, len(registry.types))
	for name, spec := range registry.types {
		types[name] = spec
	}
	return types
}

func registeredSets() map[string]*SetSpec {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	sets := make(map[string]*SetSpec, len(registry.sets))
	for name, spec := range registry.sets {
		sets[name] = spec
	}
	return sets
}
