// Package metadata implements the Metadata Registry (spec.md §4.1): per-type
// discovery and caching of table name, primary key, column map, unmapped
// set, remote-attribute index, and compiled property accessors.
package metadata

import (
	"reflect"
	"sort"
	"sync"

	"github.com/FuncularLabs/funkyorm"
)

// PropertyRef identifies one mapped property of an entity type: its Go name,
// resolved column name, and whether it is the primary key / identity.
type PropertyRef struct {
	Name       string
	Column     string
	GoType     reflect.Type
	IsPK       bool
	Identity   bool
	FieldIndex []int
}

// TypeMapping is the resolved metadata for one entity type (spec.md §3.1).
type TypeMapping struct {
	Type         reflect.Type // struct type, never a pointer
	Table        string
	PrimaryKey   *PropertyRef
	Properties   []*PropertyRef // mapped properties, in struct field order
	byName       map[string]*PropertyRef
	byColumn     map[string]*PropertyRef
	Unmapped     map[string]bool
	Remotes      map[string]*RemoteInfo // property name -> remote marker
	AccessorPlan *AccessorPlan
}

// PropertyByName returns the mapped property with the given Go field name.
func (m *TypeMapping) PropertyByName(name string) (*PropertyRef, bool) {
	p, ok := m.byName[name]
	return p, ok
}

// ColumnOf returns the resolved column name for a mapped property.
func (m *TypeMapping) ColumnOf(property string) (string, bool) {
	p, ok := m.byName[property]
	if !ok {
		return "", false
	}
	return p.Column, true
}

// RemoteInfo returns the remote marker attached to a property, if any.
func (m *TypeMapping) RemoteInfo(property string) (*RemoteInfo, bool) {
	r, ok := m.Remotes[property]
	return r, ok
}

// tableNamer lets an entity override its table name (SPEC_FULL.md §A),
// taking the place of a TableOverride attribute.
type tableNamer interface {
	TableName() string
}

// Registry discovers and caches TypeMapping values, concurrent-read with
// first-write-wins semantics (spec.md §4.1 "Caching").
type Registry struct {
	mu       sync.RWMutex
	mappings map[reflect.Type]*TypeMapping
	byName   map[string]reflect.Type // simple type name -> struct type, for remote-marker resolution
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		mappings: make(map[reflect.Type]*TypeMapping),
		byName:   make(map[string]reflect.Type),
	}
}

// structType dereferences a (possibly pointer) reflect.Type down to its
// underlying struct type.
func structType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Resolve returns the TypeMapping for t (a struct or pointer-to-struct
// type), discovering it on first use. Subsequent calls are lock-free-ish
// reads guarded by a RWMutex (spec.md §4.1).
func (r *Registry) Resolve(t reflect.Type) (*TypeMapping, error) {
	st := structType(t)

	r.mu.RLock()
	m, ok := r.mappings[st]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// First write wins: re-check under the write lock.
	if m, ok := r.mappings[st]; ok {
		return m, nil
	}
	m, err := discover(st)
	if err != nil {
		return nil, err
	}
	r.mappings[st] = m
	r.byName[st.Name()] = st
	return m, nil
}

// AllTypes returns every struct type discovered so far, for the Path
// Resolver's inferred-mode BFS (spec.md §4.7).
func (r *Registry) AllTypes() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]reflect.Type, 0, len(r.byName))
	for _, t := range r.byName {
		types = append(types, t)
	}
	return types
}

// TypeByName returns the struct type previously discovered under the given
// simple type name, used by the Path Resolver to turn a remote marker's
// target-type name into a reflect.Type. The target type must itself have
// been Resolve()'d at least once before a path referencing it can be
// resolved; discovering an entity that names it in a tag does not register
// it.
func (r *Registry) TypeByName(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// MustResolve discovers every type in types, stopping at and returning the
// first discovery error. It does not follow `link=`, `remotekey=`, or
// `remoteproperty=` references: each entity type a remote marker routes
// through must itself be among types (or be resolved elsewhere).
func (r *Registry) MustResolve(types ...reflect.Type) error {
	for _, t := range types {
		if _, err := r.Resolve(t); err != nil {
			return err
		}
	}
	return nil
}

// ColumnOf returns the resolved column name for a property of t.
func (r *Registry) ColumnOf(t reflect.Type, property string) (string, error) {
	m, err := r.Resolve(t)
	if err != nil {
		return "", err
	}
	col, ok := m.ColumnOf(property)
	if !ok {
		return "", funkyorm.NewMetadataError(m.Type.Name(), "no mapped property "+property)
	}
	return col, nil
}

// PrimaryKeyOf returns the primary key PropertyRef of t.
func (r *Registry) PrimaryKeyOf(t reflect.Type) (*PropertyRef, error) {
	m, err := r.Resolve(t)
	if err != nil {
		return nil, err
	}
	if m.PrimaryKey == nil {
		return nil, funkyorm.NewMetadataError(m.Type.Name(), "no primary key could be resolved")
	}
	return m.PrimaryKey, nil
}

// RemoteInfo returns the remote marker attached to a property of t.
func (r *Registry) RemoteInfo(t reflect.Type, property string) (*RemoteInfo, bool, error) {
	m, err := r.Resolve(t)
	if err != nil {
		return nil, false, err
	}
	info, ok := m.RemoteInfo(property)
	return info, ok, nil
}

// AccessorPlan returns the compiled accessor plan for t.
func (r *Registry) AccessorPlan(t reflect.Type) (*AccessorPlan, error) {
	m, err := r.Resolve(t)
	if err != nil {
		return nil, err
	}
	return m.AccessorPlan, nil
}

// discover builds a TypeMapping for st by reflecting over its fields and db
// tags (spec.md §4.1 "First-use discovery").
func discover(st reflect.Type) (*TypeMapping, error) {
	if st.Kind() != reflect.Struct {
		return nil, funkyorm.NewMetadataError(st.String(), "not a struct type")
	}

	m := &TypeMapping{
		Type:     st,
		Table:    tableName(st),
		byName:   make(map[string]*PropertyRef),
		byColumn: make(map[string]*PropertyRef),
		Unmapped: make(map[string]bool),
		Remotes:  make(map[string]*RemoteInfo),
	}

	plan := &AccessorPlan{byName: make(map[string]Accessor)}

	var pkCandidatesByConvention []*PropertyRef
	usedNormalizedColumns := make(map[string]string) // normalized -> original property name

	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		tag := parseFieldTag(f.Tag.Get("db"))
		if tag.notMapped {
			m.Unmapped[f.Name] = true
			continue
		}

		column := f.Name
		if tag.column != "" {
			column = tag.column
		}

		prop := &PropertyRef{
			Name:       f.Name,
			Column:     column,
			GoType:     f.Type,
			IsPK:       tag.pk,
			Identity:   tag.identity,
			FieldIndex: append([]int{}, f.Index...),
		}

		norm := Normalize(column)
		if existing, dup := usedNormalizedColumns[norm]; dup {
			return nil, funkyorm.NewMetadataError(st.Name(),
				"column conflict: properties "+existing+" and "+f.Name+" both resolve to column "+column)
		}
		usedNormalizedColumns[norm] = f.Name

		m.byName[f.Name] = prop
		m.byColumn[column] = prop
		m.Properties = append(m.Properties, prop)
		plan.byName[f.Name] = Accessor{index: prop.FieldIndex, typ: f.Type}

		if tag.pk {
			if m.PrimaryKey != nil {
				return nil, funkyorm.NewMetadataError(st.Name(), "multiple properties marked as primary key")
			}
			m.PrimaryKey = prop
		} else if isConventionalPK(st.Name(), f.Name) {
			pkCandidatesByConvention = append(pkCandidatesByConvention, prop)
		}

		if tag.link != "" {
			m.Remotes[f.Name] = &RemoteInfo{Kind: RemoteLink, TargetTypeName: tag.link}
		}
		if tag.remoteKey != "" {
			target, path := parseRemoteSpec(tag.remoteKey)
			m.Remotes[f.Name] = &RemoteInfo{Kind: RemoteKeyKind, TargetTypeName: target, KeyPath: path}
		}
		if tag.remoteProp != "" {
			target, path := parseRemoteSpec(tag.remoteProp)
			m.Remotes[f.Name] = &RemoteInfo{Kind: RemotePropertyKind, TargetTypeName: target, KeyPath: path}
		}
	}

	if m.PrimaryKey == nil {
		if len(pkCandidatesByConvention) == 1 {
			m.PrimaryKey = pkCandidatesByConvention[0]
		} else if len(pkCandidatesByConvention) > 1 {
			return nil, funkyorm.NewMetadataError(st.Name(), "ambiguous primary key: multiple properties match naming conventions")
		} else {
			return nil, funkyorm.NewMetadataError(st.Name(),
				"no primary key: tried [Key]-equivalent marker, Id, "+st.Name()+"Id, "+st.Name()+"_Id")
		}
	}
	m.PrimaryKey.IsPK = true

	m.AccessorPlan = plan
	return m, nil
}

// tableName resolves the table name override or falls back to the type's
// simple name (spec.md §3.1 "Table name").
func tableName(st reflect.Type) string {
	if tn, ok := reflect.New(st).Interface().(tableNamer); ok {
		if name := tn.TableName(); name != "" {
			return name
		}
	}
	return st.Name()
}

// isConventionalPK reports whether fieldName matches one of the three
// primary-key naming conventions (spec.md §3.1): Id, <TypeName>Id, or
// <TypeName>_Id, compared case/underscore-insensitively.
func isConventionalPK(typeName, fieldName string) bool {
	norm := Normalize(fieldName)
	if norm == "id" {
		return true
	}
	return norm == Normalize(typeName+"Id")
}

// Validate runs discovery for t (if not already cached) and reports whether
// it would succeed, without requiring a live query (SPEC_FULL.md §D.5).
func (r *Registry) Validate(t reflect.Type) error {
	_, err := r.Resolve(t)
	return err
}

// SortedPropertyNames returns the mapped property names of m in a stable,
// deterministic order (PK first, then alphabetical) — used by the Projection
// Translator's identity-projection column order (spec.md §4.5).
func (m *TypeMapping) SortedPropertyNames() []string {
	names := make([]string, 0, len(m.Properties))
	for _, p := range m.Properties {
		if p == m.PrimaryKey {
			continue
		}
		names = append(names, p.Name)
	}
	sort.Strings(names)
	if m.PrimaryKey != nil {
		names = append([]string{m.PrimaryKey.Name}, names...)
	}
	return names
}
