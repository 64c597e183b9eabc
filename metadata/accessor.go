package metadata

import "reflect"

// Accessor is a compiled getter/setter pair for one mapped property, keyed
// by stable field index rather than re-walked by name on every access
// (spec.md §4.1 "Accessor plan", §9 "Accessor plans"). Using the cached
// reflect.StructField.Index avoids a name lookup per row on the
// Materializer's hot path; only the final field access costs reflection.
type Accessor struct {
	index []int
	typ   reflect.Type
}

// Get reads the property's value off an entity's reflect.Value (addressable
// or not; only field reads are needed here).
func (a Accessor) Get(v reflect.Value) any {
	return v.FieldByIndex(a.index).Interface()
}

// Set writes val into the property's field on an addressable entity value.
func (a Accessor) Set(v reflect.Value, val any) {
	v.FieldByIndex(a.index).Set(reflect.ValueOf(val))
}

// FieldValue returns the addressable reflect.Value of the property's field,
// for callers (the Materializer) that need to Scan directly into it.
func (a Accessor) FieldValue(v reflect.Value) reflect.Value {
	return v.FieldByIndex(a.index)
}

// Type returns the Go type of the underlying field.
func (a Accessor) Type() reflect.Type { return a.typ }

// AccessorPlan is the compiled set of Accessors for a type, keyed by
// property name.
type AccessorPlan struct {
	byName map[string]Accessor
}

// Accessor returns the compiled accessor for the named property.
func (p *AccessorPlan) Accessor(name string) (Accessor, bool) {
	a, ok := p.byName[name]
	return a, ok
}
