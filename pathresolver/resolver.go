// Package pathresolver implements the Path Resolver (spec.md §4.7):
// resolving a remote marker's (remote_type, key_path) into an ordered join
// chain, by explicit chain-of-FKs or shortest-path BFS over the FK graph.
//
// Inferred (BFS) mode walks the graph of entity types already known to the
// Metadata Registry. Unlike the source ecosystem (which could reflect over
// every type in an assembly), Go cannot enumerate "every entity type that
// exists" — the registry only knows about types that have been resolved at
// least once. Callers that rely on inferred-mode remote markers must
// pre-register every entity type that can appear as an intermediate hop
// (metadata.Registry.MustResolve) before running a query that needs BFS
// resolution.
package pathresolver

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/FuncularLabs/funkyorm"
	"github.com/FuncularLabs/funkyorm/metadata"
)

// JoinStep is one LEFT OUTER JOIN hop in a resolved path (spec.md §4.7).
type JoinStep struct {
	FromAlias  string
	FromColumn string
	ToType     reflect.Type
	ToTable    string
	ToAlias    string
	ToPKColumn string
}

// ResolvedPath is the output of resolving one remote marker: the ordered
// join chain, the final selected column, and the stable output alias for
// that column (spec.md §4.7).
type ResolvedPath struct {
	Steps        []JoinStep
	SelectAlias  string // alias of the table the final column lives on
	SelectColumn string
	ColumnAlias  string // the declaring property's name
	chainKey     string
}

// ChainKey returns the de-duplication key for this path's join chain
// (spec.md §4.7 "same logical chain... share a single alias", §9 "Remote
// join de-duplication": keyed by the ordered tuple of (from_type, to_type,
// via_property) steps).
func (p *ResolvedPath) ChainKey() string { return p.chainKey }

// Resolver resolves remote markers for a single translation unit (one
// Command Builder pass). It memoizes resolved hops by the *prefix* of their
// (from_type,to_type,via_property) signature — not by the whole chain —
// so that two remote properties whose paths only share a leading segment
// (e.g. both traverse Employee→Organization before diverging) still share
// the join and alias for that shared segment, per spec.md §9 "Remote join
// de-duplication". It assigns deterministic, monotonically increasing short
// aliases ("t1", "t2", ...) to each newly discovered intermediate table
// (spec.md §4.7, §4.8).
type Resolver struct {
	registry  *metadata.Registry
	baseAlias string
	seq       int
	chains    map[string]*resolvedChain // keyed by hop prefix, one entry per hop
	order     []*resolvedChain
}

type resolvedChain struct {
	key  string
	step JoinStep
}

// NewResolver returns a Resolver scoped to one translation unit, rooted at
// baseAlias (the base table's alias, e.g. "t0").
func NewResolver(registry *metadata.Registry, baseAlias string) *Resolver {
	return &Resolver{
		registry:  registry,
		baseAlias: baseAlias,
		chains:    make(map[string]*resolvedChain),
	}
}

// Joins returns the unique join hops referenced so far, in first-reference
// order, suitable for sequential LEFT JOIN emission by the Command Builder.
func (r *Resolver) Joins() []JoinStep {
	steps := make([]JoinStep, len(r.order))
	for i, c := range r.order {
		steps[i] = c.step
	}
	return steps
}

// Resolve resolves one remote marker declared on declaringType for the
// given property name, returning the ordered join chain and final column
// reference.
func (r *Resolver) Resolve(declaringType reflect.Type, property string, info *metadata.RemoteInfo) (*ResolvedPath, error) {
	if len(info.KeyPath) == 0 {
		return nil, funkyorm.NewTranslationError("path-resolve", property, "remote marker has an empty key_path")
	}
	if len(info.KeyPath) > 1 {
		return r.resolveExplicit(declaringType, property, info)
	}
	return r.resolveInferred(declaringType, property, info)
}

// resolveExplicit walks info.KeyPath[:-1] as FK hops off declaringType and
// validates the chain lands on info.TargetTypeName, then resolves the final
// segment as a column on that type (spec.md §4.7 "Explicit mode").
func (r *Resolver) resolveExplicit(declaringType reflect.Type, property string, info *metadata.RemoteInfo) (*ResolvedPath, error) {
	hops := info.KeyPath[:len(info.KeyPath)-1]
	finalSegment := info.KeyPath[len(info.KeyPath)-1]

	currentType := declaringType
	currentAlias := r.baseAlias
	var prefixParts []string
	var steps []JoinStep

	for _, seg := range hops {
		m, err := r.registry.Resolve(currentType)
		if err != nil {
			return nil, err
		}
		prop, ok := m.PropertyByName(seg)
		if !ok {
			return nil, funkyorm.NewTranslationError("path-resolve", property,
				fmt.Sprintf("explicit path segment %q is not a property of %s", seg, currentType.Name()))
		}

		nextTypeName, ok := nextHopTypeName(m, seg, prop)
		if !ok {
			return nil, funkyorm.NewTranslationError("path-resolve", property,
				fmt.Sprintf("segment %q on %s is not a Link or conventional FK property", seg, currentType.Name()))
		}
		nextType, ok := r.registry.TypeByName(nextTypeName)
		if !ok {
			return nil, funkyorm.NewTranslationError("path-resolve", property,
				fmt.Sprintf("target type %q of segment %q is not registered", nextTypeName, seg))
		}
		nextMapping, err := r.registry.Resolve(nextType)
		if err != nil {
			return nil, err
		}

		prefixParts = append(prefixParts, currentType.Name()+">"+nextType.Name()+"via"+seg)
		step := r.internHop(strings.Join(prefixParts, "|"), hopStep{
			fromAlias:  currentAlias,
			fromColumn: prop.Column,
			toType:     nextType,
			toTable:    nextMapping.Table,
			toPKColumn: nextMapping.PrimaryKey.Column,
		})
		steps = append(steps, step)
		currentType = nextType
		currentAlias = step.ToAlias
	}

	if currentType.Name() != info.TargetTypeName {
		return nil, funkyorm.NewTranslationError("path-resolve", property,
			fmt.Sprintf("explicit path ends at %s, expected %s", currentType.Name(), info.TargetTypeName))
	}

	finalMapping, err := r.registry.Resolve(currentType)
	if err != nil {
		return nil, err
	}
	finalProp, ok := resolveColumnProperty(finalMapping, finalSegment)
	if !ok {
		return nil, funkyorm.NewTranslationError("path-resolve", property,
			fmt.Sprintf("final segment %q is not a column of %s", finalSegment, currentType.Name()))
	}

	return &ResolvedPath{
		Steps:        steps,
		SelectAlias:  currentAlias,
		SelectColumn: finalProp.Column,
		ColumnAlias:  property,
		chainKey:     strings.Join(prefixParts, "|"),
	}, nil
}

type hopStep struct {
	fromAlias  string
	fromColumn string
	toType     reflect.Type
	toTable    string
	toPKColumn string
}

// internHop memoizes a single join hop keyed on the chain *prefix* leading
// to it (not the whole chain), assigning a fresh alias only the first time
// that prefix is seen. Two remote properties whose paths share a leading
// segment resolve the shared prefix to the same cached hop and alias, so
// the Command Builder emits it as one LEFT JOIN regardless of how many
// remote properties reference it (spec.md §4.7, §9).
func (r *Resolver) internHop(prefixKey string, h hopStep) JoinStep {
	if existing, ok := r.chains[prefixKey]; ok {
		return existing.step
	}
	r.seq++
	step := JoinStep{
		FromAlias:  h.fromAlias,
		FromColumn: h.fromColumn,
		ToType:     h.toType,
		ToTable:    h.toTable,
		ToAlias:    fmt.Sprintf("t%d", r.seq),
		ToPKColumn: h.toPKColumn,
	}
	chain := &resolvedChain{key: prefixKey, step: step}
	r.chains[prefixKey] = chain
	r.order = append(r.order, chain)
	return step
}

// nextHopTypeName determines the target type name of an FK hop property:
// its Link marker's target, or the type name implied by the "<Type>Id"
// naming convention.
func nextHopTypeName(m *metadata.TypeMapping, segment string, prop *metadata.PropertyRef) (string, bool) {
	if info, ok := m.RemoteInfo(segment); ok && info.Kind == metadata.RemoteLink {
		return info.TargetTypeName, true
	}
	if strings.HasSuffix(prop.Name, "Id") && len(prop.Name) > len("Id") {
		return strings.TrimSuffix(prop.Name, "Id"), true
	}
	return "", false
}

// resolveColumnProperty matches a key_path's final segment (a column name)
// against the target type's mapped properties, by name first and by
// normalized column name second.
func resolveColumnProperty(m *metadata.TypeMapping, segment string) (*metadata.PropertyRef, bool) {
	if p, ok := m.PropertyByName(segment); ok {
		return p, true
	}
	norm := metadata.Normalize(segment)
	for _, p := range m.Properties {
		if metadata.Normalize(p.Column) == norm {
			return p, true
		}
	}
	return nil, false
}
