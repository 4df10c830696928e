package viscera

import (
	"context"
	"fmt"

	"github.com/canonical/gomaas/internal/common/apperrors"
	"github.com/canonical/gomaas/pkg/bones"
)

// Error bases for the object layer.
var (
	ErrObject = apperrors.New("object error")

	// ErrNotLoaded is returned when a non-key field of a partially-loaded
	// object is read before Refresh.
	ErrNotLoaded = ErrObject.New("object is not loaded")

	// ErrPendingOperation rejects a second remote operation on an object
	// while one is still in flight.
	ErrPendingOperation = ErrObject.New("another operation is in progress")

	// ErrUnbound is returned when a remote operation is attempted on a
	// type whose handler is absent from the session's description.
	ErrUnbound = ErrObject.New("type is not bound to a handler")
)

// Origin binds every registered type and set to one session's handlers.
// Types whose handler is missing from the description remain usable for
// in-memory wrapping but reject remote operations.
type Origin struct {
	session *bones.Session
	types   map[string]*BoundType
	sets    map[string]*BoundSet
}

// NewOrigin binds the registry against a session.
func NewOrigin(session *bones.Session) *Origin {
	origin := &Origin{
		session: session,
		types:   make(map[string]*BoundType),
		sets:    make(map[string]*BoundSet),
	}
	for name, spec := range registeredTypes() {
		bound := &BoundType{
			origin: origin,
			spec:   spec,
			fields: make(map[string]*FieldSpec, len(spec.Fields)),
		}
		for i := range spec.Fields {
			field := &spec.Fields[i]
			bound.fields[field.Name] = field
			if field.isKey() {
				bound.keys = append(bound.keys, field.Name)
			}
		}
		if handler, err := session.Handler(spec.handlerName()); err == nil {
			bound.handler = handler
		}
		origin.types[name] = bound
	}
	for name, spec := range registeredSets() {
		bound := &BoundSet{origin: origin, spec: spec}
		if handler, err := session.Handler(spec.handlerName()); err == nil {
			bound.handler = handler
		}
		if object, ok := origin.types[spec.Object]; ok {
			bound.object = object
		}
		origin.sets[name] = bound
	}
	return origin
}

// Session returns the session this origin dispatches through.
func (o *Origin) Session() *bones.Session {
	return o.session
}

// Type looks up a bound object type by registry name.
func (o *Origin) Type(name string) (*BoundType, error) {
	bound, ok := o.types[name]
	if !ok {
		return nil, fmt.Errorf("unknown object type %q", name)
	}
	return bound, nil
}

// Set looks up a bound collection type by registry name.
func (o *Origin) Set(name string) (*BoundSet, error) {
	bound, ok := o.sets[name]
	if !ok {
		return nil, fmt.Errorf("unknown object set %q", name)
	}
	return bound, nil
}

// BoundType is one registered type bound to an origin, and possibly to a
// session handler.
type BoundType struct {
	origin  *Origin
	spec    *TypeSpec
	handler *bones.Handler
	fields  map[string]*FieldSpec
	keys    []string
}

// Name returns the type's registry name.
func (t *BoundType) Name() string {
	return t.spec.Name
}

// Origin returns the origin this type is bound to.
func (t *BoundType) Origin() *Origin {
	return t.origin
}

// Bound reports whether the type has a live handler.
func (t *BoundType) Bound() bool {
	return t.handler != nil
}

// New wraps wire data in a fully-loaded object.
func (t *BoundType) New(data map[string]any) *Object {
	return &Object{typ: t, record: NewRecord(data), loaded: true}
}

// Partial builds an unloaded object from key fields only. Reading any
// other field fails with ErrNotLoaded until Refresh; the object is still
// good for Delete or for identity comparisons. Types without key fields
// cannot be partially loaded.
func (t *BoundType) Partial(keys map[string]any) (*Object, error) {
	if len(t.keys) == 0 {
		return nil, ErrObject.Msg(fmt.Sprintf(
			"type %q declares no key fields; cannot partially load", t.spec.Name))
	}
	data := make(map[string]any, len(keys))
	for name, value := range keys {
		field, ok := t.fields[name]
		if !ok {
			return nil, ErrObject.Msg(fmt.Sprintf(
				"type %q has no field %q", t.spec.Name, name))
		}
		if !field.isKey() {
			return nil, ErrObject.Msg(fmt.Sprintf(
				"field %q of %q is not a key field", name, t.spec.Name))
		}
		datum := value
		if field.ToDatum != nil {
			converted, err := field.ToDatum(value)
			if err != nil {
				return nil, err
			}
			datum = converted
		}
		data[field.datum()] = datum
	}
	return &Object{typ: t, record: NewRecord(data), loaded: false}, nil
}

// Read builds a partial object from the given keys and refreshes it from
// the remote system.
func (t *BoundType) Read(ctx context.Context, keys map[string]any) (*Object, error) {
	obj, err := t.Partial(keys)
	if err != nil {
		return nil, err
	}
	if err := obj.Refresh(ctx); err != nil {
		return nil, err
	}
	return obj, nil
}

// BoundSet is one registered collection bound to an origin.
type BoundSet struct {
	origin  *Origin
	spec    *SetSpec
	handler *bones.Handler
	object  *BoundType
}

// Name returns the set's registry name.
func (s *BoundSet) Name() string {
	return s.spec.Name
}

// ObjectType returns the bound type of the set's elements.
func (s *BoundSet) ObjectType() *BoundType {
	return s.object
}

// New wraps already-constructed objects in a set.
func (s *BoundSet) New(items []*Object) *ObjectSet {
	return &ObjectSet{set: s, items: append([]*Object(nil), items...)}
}

// Call dispatches a named action on the collection handler.
func (s *BoundSet) Call(ctx context.Context, action string, data ...bones.Param) (*bones.CallResult, error) {
	if s.handler == nil {
		return nil, ErrUnbound.Msg(fmt.Sprintf(
			"set %q is not bound to a handler", s.spec.Name))
	}
	act, err := s.handler.Action(action)
	if err != nil {
		return nil, err
	}
	return act.Call(ctx, nil, data...)
}

// Read fetches the whole collection. Each element of the response becomes
// a loaded object of the set's element type.
func (s *BoundSet) Read(ctx context.Context, data ...bones.Param) (*ObjectSet, error) {
	result, err := s.Call(ctx, "read", data...)
	if err != nil {
		return nil, err
	}
	listed, ok := result.Data.([]any)
	if !ok {
		return nil, ErrObject.Msg(fmt.Sprintf(
			"set %q: expected a list in response, got %T", s.spec.Name, result.Data))
	}
	items := make([]*Object, 0, len(listed))
	for _, element := range listed {
		doc, ok := element.(map[string]any)
		if !ok {
			return nil, ErrObject.Msg(fmt.Sprintf(
				"set %q: expected objects in response, got %T", s.spec.Name, element))
		}
		items = append(items, s.object.New(doc))
	}
	return &ObjectSet{set: s, items: items}, nil
}
