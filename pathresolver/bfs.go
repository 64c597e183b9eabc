package pathresolver

import (
	"reflect"
	"strings"

	"github.com/FuncularLabs/funkyorm"
	"github.com/FuncularLabs/funkyorm/metadata"
)

// fkEdge is one directed edge of the FK graph: a property on From that is
// either Link-marked or named by the "<To>Id" convention, targeting To.
type fkEdge struct {
	fromType   reflect.Type
	property   string
	fromColumn string
	toType     reflect.Type
}

// fkEdges enumerates the outgoing FK edges of t, given the set of types
// already known to the registry (spec.md §4.7 "Edges are every property
// carrying a Link marker or following the <TargetType>Id convention").
func fkEdges(registry *metadata.Registry, t reflect.Type, known []reflect.Type) ([]fkEdge, error) {
	m, err := registry.Resolve(t)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]reflect.Type, len(known))
	for _, kt := range known {
		byName[kt.Name()] = kt
	}

	var edges []fkEdge
	for _, prop := range m.Properties {
		if info, ok := m.RemoteInfo(prop.Name); ok && info.Kind == metadata.RemoteLink {
			if target, ok := byName[info.TargetTypeName]; ok {
				edges = append(edges, fkEdge{fromType: t, property: prop.Name, fromColumn: prop.Column, toType: target})
			}
			continue
		}
		if strings.HasSuffix(prop.Name, "Id") && len(prop.Name) > len("Id") {
			candidate := strings.TrimSuffix(prop.Name, "Id")
			if target, ok := byName[candidate]; ok && target != t {
				edges = append(edges, fkEdge{fromType: t, property: prop.Name, fromColumn: prop.Column, toType: target})
			}
		}
	}
	return edges, nil
}

// bfsPath is one candidate shortest path discovered during BFS.
type bfsPath struct {
	edges []fkEdge
}

// shortestPaths runs BFS from source to target over the FK graph induced by
// known types, returning every distinct shortest path found (spec.md §4.7
// "Inferred mode").
func shortestPaths(registry *metadata.Registry, source, target reflect.Type, known []reflect.Type) ([]bfsPath, error) {
	type frontierEntry struct {
		node  reflect.Type
		path  []fkEdge
	}

	frontier := []frontierEntry{{node: source, path: nil}}
	visitedAtDepth := map[reflect.Type]int{source: 0}
	depth := 0

	for len(frontier) > 0 {
		var found []bfsPath
		var next []frontierEntry

		for _, entry := range frontier {
			if entry.node == target && depth > 0 {
				found = append(found, bfsPath{edges: entry.path})
				continue
			}
			edges, err := fkEdges(registry, entry.node, known)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				if d, seen := visitedAtDepth[e.toType]; seen && d < depth+1 {
					continue // already reached more cheaply; skip to avoid longer duplicate paths
				}
				np := append(append([]fkEdge{}, entry.path...), e)
				next = append(next, frontierEntry{node: e.toType, path: np})
				if _, seen := visitedAtDepth[e.toType]; !seen {
					visitedAtDepth[e.toType] = depth + 1
				}
			}
		}

		if len(found) > 0 {
			return dedupPaths(found), nil
		}
		if len(next) == 0 {
			break
		}
		frontier = next
		depth++
		if depth > len(known)+1 {
			break // graph exhausted without reaching target
		}
	}
	return nil, nil
}

// dedupPaths removes structurally identical paths (same edge sequence),
// which can arise when multiple frontier branches converge.
func dedupPaths(paths []bfsPath) []bfsPath {
	seen := make(map[string]bool)
	var out []bfsPath
	for _, p := range paths {
		var sb strings.Builder
		for _, e := range p.edges {
			sb.WriteString(e.fromType.Name())
			sb.WriteByte('>')
			sb.WriteString(e.property)
			sb.WriteByte(';')
		}
		key := sb.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// resolveInferred runs BFS from declaringType to info.TargetTypeName and
// resolves the single remaining key_path segment as the target column
// (spec.md §4.7 "Inferred mode"). Ambiguity (multiple equally-short paths)
// and absence (zero paths) are reported as distinct error types.
func (r *Resolver) resolveInferred(declaringType reflect.Type, property string, info *metadata.RemoteInfo) (*ResolvedPath, error) {
	targetType, ok := r.registry.TypeByName(info.TargetTypeName)
	if !ok {
		return nil, funkyorm.NewPathNotFoundError(declaringType.Name(), info.TargetTypeName)
	}

	// BFS traverses every type the registry has seen so far, so it can route
	// through intermediates beyond the declaring/target pair.
	known := r.registry.AllTypes()

	paths, err := shortestPaths(r.registry, declaringType, targetType, known)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, funkyorm.NewPathNotFoundError(declaringType.Name(), info.TargetTypeName)
	}
	if len(paths) > 1 {
		return nil, funkyorm.NewAmbiguousMatchError(declaringType.Name(), info.TargetTypeName, len(paths))
	}

	chosen := paths[0]
	var prefixParts []string
	var steps []JoinStep
	currentAlias := r.baseAlias
	for _, e := range chosen.edges {
		m, err := r.registry.Resolve(e.toType)
		if err != nil {
			return nil, err
		}
		prefixParts = append(prefixParts, e.fromType.Name()+">"+e.toType.Name()+"via"+e.property)
		step := r.internHop(strings.Join(prefixParts, "|"), hopStep{
			fromAlias:  currentAlias,
			fromColumn: e.fromColumn,
			toType:     e.toType,
			toTable:    m.Table,
			toPKColumn: m.PrimaryKey.Column,
		})
		steps = append(steps, step)
		currentAlias = step.ToAlias
	}

	finalMapping, err := r.registry.Resolve(targetType)
	if err != nil {
		return nil, err
	}
	finalProp, ok := resolveColumnProperty(finalMapping, info.KeyPath[0])
	if !ok {
		return nil, funkyorm.NewTranslationError("path-resolve", property,
			"target column "+info.KeyPath[0]+" not found on "+targetType.Name())
	}

	return &ResolvedPath{
		Steps:        steps,
		SelectAlias:  currentAlias,
		SelectColumn: finalProp.Column,
		ColumnAlias:  property,
		chainKey:     strings.Join(prefixParts, "|"),
	}, nil
}
