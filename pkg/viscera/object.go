package viscera

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync/atomic"

	"github.com/canonical/gomaas/pkg/bones"
)

// Object is one remote resource instance: wire data behind typed field
// access, with identity, change tracking, and remote operations. An
// unloaded object carries only its key fields until Refresh fills it in.
type Object struct {
	typ    *BoundType
	record *Record
	local  map[string]any
	loaded bool

	// pending serialises remote operations on this instance; the maps
	// behind it are not safe for concurrent mutation.
	pending atomic.Bool
}

// Type returns the object's bound type.
func (o *Object) Type() *BoundType {
	return o.typ
}

// Origin returns the origin the object was created through.
func (o *Object) Origin() *Origin {
	return o.typ.origin
}

// Loaded reports whether the object carries full data.
func (o *Object) Loaded() bool {
	return o.loaded
}

// Dirty reports whether unsaved changes are staged.
func (o *Object) Dirty() bool {
	return o.record.Dirty()
}

func (o *Object) field(name string) (*FieldSpec, error) {
	field, ok := o.typ.fields[name]
	if !ok {
		return nil, ErrObject.Msg(fmt.Sprintf(
			"type %q has no field %q", o.typ.spec.Name, name))
	}
	return field, nil
}

// Get returns a field's value, converting from its wire form. Reading a
// non-key field of an unloaded object fails with ErrNotLoaded; an absent
// datum yields the field's default, or an error when it has none.
func (o *Object) Get(name string) (any, error) {
	field, err := o.field(name)
	if err != nil {
		return nil, err
	}
	if value, ok := o.local[name]; ok {
		return value, nil
	}
	if !o.loaded && !field.isKey() {
		return nil, ErrNotLoaded.Msg(fmt.Sprintf(
			"cannot read field %q of unloaded %q; refresh first",
			name, o.typ.spec.Name))
	}
	datum, ok := o.record.Get(field.datum())
	if !ok {
		if field.HasDefault {
			return field.Default, nil
		}
		return nil, ErrObject.Msg(fmt.Sprintf(
			"field %q of %q has no value", name, o.typ.spec.Name))
	}
	if field.ToValue != nil {
		return field.ToValue(o, datum)
	}
	return datum, nil
}

// Set stages a change to a field, converting to its wire form. The change
// is local until Save.
func (o *Object) Set(name string, value any) error {
	field, err := o.field(name)
	if err != nil {
		return err
	}
	if field.ReadOnly {
		return ErrObject.Msg(fmt.Sprintf(
			"field %q of %q is read-only", name, o.typ.spec.Name))
	}
	datum := value
	if field.ToDatum != nil {
		converted, err := field.ToDatum(value)
		if err != nil {
			return err
		}
		datum = converted
	}
	o.record.Set(field.datum(), datum)
	return nil
}

// setLocal stores an already-converted value outside the change-tracked
// data; used for reverse relationship back-population.
func (o *Object) setLocal(name string, value any) {
	if o.local == nil {
		o.local = make(map[string]any)
	}
	o.local[name] = value
}

// Data returns a copy of the object's effective wire data.
func (o *Object) Data() map[string]any {
	return o.record.Snapshot()
}

// Equal reports whether two objects have the same bound type and the same
// effective data.
func (o *Object) Equal(other *Object) bool {
	if other == nil || o.typ != other.typ {
		return false
	}
	return reflect.DeepEqual(o.record.Snapshot(), other.record.Snapshot())
}

// uriParams resolves the handler's URI template parameters from the
// object's data; the parameter names are wire keys.
func (o *Object) uriParams() (map[string]string, error) {
	if o.typ.handler == nil {
		return nil, ErrUnbound.Msg(fmt.Sprintf(
			"type %q is not bound to a handler", o.typ.spec.Name))
	}
	params := make(map[string]string)
	for _, name := range o.typ.handler.Params() {
		datum, ok := o.record.Get(name)
		if !ok {
			return nil, ErrObject.Msg(fmt.Sprintf(
				"%q has no value for URI parameter %q", o.typ.spec.Name, name))
		}
		params[name] = datumString(datum)
	}
	return params, nil
}

func (o *Object) action(name string) (*bones.Action, error) {
	if o.typ.handler == nil {
		return nil, ErrUnbound.Msg(fmt.Sprintf(
			"type %q is not bound to a handler", o.typ.spec.Name))
	}
	return o.typ.handler.Action(name)
}

// begin claims the object for one remote operation.
func (o *Object) begin() error {
	if !o.pending.CompareAndSwap(false, true) {
		return ErrPendingOperation.Msg(fmt.Sprintf(
			"%q has an operation in progress", o.typ.spec.Name))
	}
	return nil
}

// Refresh re-reads the object from the remote system, discarding staged
// changes.
func (o *Object) Refresh(ctx context.Context) error {
	if err := o.begin(); err != nil {
		return err
	}
	defer o.pending.Store(false)

	action, err := o.action("read")
	if err != nil {
		return err
	}
	params, err := o.uriParams()
	if err != nil {
		return err
	}
	result, err := action.Call(ctx, params)
	if err != nil {
		return err
	}
	doc, ok := result.Data.(map[string]any)
	if !ok {
		return ErrObject.Msg(fmt.Sprintf(
			"%q: expected an object in response, got %T",
			o.typ.spec.Name, result.Data))
	}
	o.record.Commit(doc)
	o.loaded = true
	return nil
}

// Save pushes staged changes to the remote system. Fields declaring list
// operations are routed through one add or remove call per changed
// element; everything else goes through a single update. A clean object
// makes no requests at all, and local state only changes after the server
// acknowledges.
func (o *Object) Save(ctx context.Context) error {
	if !o.record.Dirty() {
		return nil
	}
	if err := o.begin(); err != nil {
		return err
	}
	defer o.pending.Store(false)

	diff := o.record.Diff()
	listDone := false
	for _, field := range o.typ.fields {
		if field.ListOps == nil {
			continue
		}
		datum := field.datum()
		staged, changed := diff[datum]
		if !changed {
			continue
		}
		original, _ := o.record.Original(datum)
		added, removed := diffElements(original, staged)
		if err := o.callListOps(ctx, field, added, removed); err != nil {
			return err
		}
		delete(diff, datum)
		listDone = true
	}

	if len(diff) == 0 {
		if listDone {
			o.record.Commit(o.record.Snapshot())
		}
		return nil
	}

	action, err := o.action("update")
	if err != nil {
		return err
	}
	params, err := o.uriParams()
	if err != nil {
		return err
	}
	data := make([]bones.Param, 0, len(diff))
	for _, key := range sortedKeys(diff) {
		data = append(data, bones.P(key, diff[key]))
	}
	result, err := action.Call(ctx, params, data...)
	if err != nil {
		return err
	}
	if doc, ok := result.Data.(map[string]any); ok {
		o.record.Commit(doc)
		o.loaded = true
	} else {
		o.record.Commit(o.record.Snapshot())
	}
	return nil
}

func (o *Object) callListOps(ctx context.Context, field *FieldSpec, added, removed []any) error {
	params, err := o.uriParams()
	if err != nil {
		return err
	}
	for opName, elements := range map[string][]any{
		field.ListOps.Add:    added,
		field.ListOps.Remove: removed,
	} {
		if len(elements) == 0 {
			continue
		}
		action, err := o.action(opName)
		if err != nil {
			return err
		}
		for _, element := range elements {
			if _, err := action.Call(ctx, params,
				bones.P(field.ListOps.Param, element)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Delete removes the object from the remote system.
func (o *Object) Delete(ctx context.Context) error {
	if err := o.begin(); err != nil {
		return err
	}
	defer o.pending.Store(false)

	action, err := o.action("delete")
	if err != nil {
		return err
	}
	params, err := o.uriParams()
	if err != nil {
		return err
	}
	_, err = action.Call(ctx, params)
	return err
}

// diffElements compares two list datums element-wise, returning the
// elements present only in staged and only in original.
func diffElements(original, staged any) (added, removed []any) {
	origList := anyList(original)
	stagedList := anyList(staged)
	for _, element := range stagedList {
		if !containsElement(origList, element) {
			added = append(added, element)
		}
	}
	for _, element := range origList {
		if !containsElement(stagedList, element) {
			removed = append(removed, element)
		}
	}
	return added, removed
}

func anyList(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []string:
		list := make([]any, len(v))
		for i, element := range v {
			list[i] = element
		}
		return list
	default:
		return []any{v}
	}
}

func containsElement(list []any, element any) bool {
	for _, candidate := range list {
		if reflect.DeepEqual(candidate, element) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ObjectSet is an ordered collection of objects that remembers the bound
// set it came from, so slices and reversals stay usable as that set.
type ObjectSet struct {
	set   *BoundSet
	items []*Object
}

// Set returns the bound set this collection belongs to, nil for ad-hoc
// collections.
func (s *ObjectSet) Set() *BoundSet {
	return s.set
}

// Len returns the number of objects.
func (s *ObjectSet) Len() int {
	return len(s.items)
}

// Item returns the object at index i.
func (s *ObjectSet) Item(i int) *Object {
	return s.items[i]
}

// Items returns a copy of the underlying slice.
func (s *ObjectSet) Items() []*Object {
	return append([]*Object(nil), s.items...)
}

// Slice returns the half-open range [i, j) as a set of the same kind.
func (s *ObjectSet) Slice(i, j int) *ObjectSet {
	return &ObjectSet{set: s.set, items: append([]*Object(nil), s.items[i:j]...)}
}

// Reversed returns a copy in reverse order.
func (s *ObjectSet) Reversed() *ObjectSet {
	reversed := make([]*Object, len(s.items))
	for i, item := range s.items {
		reversed[len(s.items)-1-i] = item
	}
	return &ObjectSet{set: s.set, items: reversed}
}

// Contains reports whether any member equals the given object.
func (s *ObjectSet) Contains(obj *Object) bool {
	for _, item := range s.items {
		if item.Equal(obj) {
			return true
		}
	}
	return false
}

// Equal reports whether two collections hold equal objects in the same
// order.
func (s *ObjectSet) Equal(other *ObjectSet) bool {
	if other == nil || len(s.items) != len(other.items) {
		return false
	}
	for i, item := range s.items {
		if !item.Equal(other.items[i]) {
			return false
		}
	}
	return true
}
