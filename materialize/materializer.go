// Package materialize implements the Materializer (spec.md §4.9): streaming
// rows from a database/sql cursor back into typed entity instances, matching
// result-set columns to accessor plans by the Projection Translator's output
// aliases and applying the narrow, well-defined coercions the wire format
// requires (null-to-default, nullable wrapping, numeric widening, enum
// widening, string/UUID conversion).
package materialize

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/FuncularLabs/funkyorm"
	"github.com/FuncularLabs/funkyorm/metadata"
)

// Plan is a compiled ordinal-to-setter binding for one result set shape: for
// each column position, either a property accessor on the target type (for
// identity projection) or a pre-resolved field index into a shaped struct
// (for anonymous projections). Built once per terminal call and reused
// across every row (spec.md §4.9 "Ordinal binding").
type Plan struct {
	columns   []string
	accessors []metadata.Accessor
}

// Build compiles a Plan by matching result-set column names (the aliases the
// Projection Translator emitted) against the target type's accessor plan,
// case/underscore-insensitively (spec.md §4.9, reusing metadata.Normalize).
func Build(columns []string, accessorPlan *metadata.AccessorPlan, byName map[string]*metadata.PropertyRef) (*Plan, error) {
	accessors := make([]metadata.Accessor, len(columns))
	for i, col := range columns {
		prop, ok := lookupByAlias(col, byName)
		if !ok {
			return nil, funkyorm.NewTranslationError("materialize", col, "result column has no matching mapped property")
		}
		a, ok := accessorPlan.Accessor(prop.Name)
		if !ok {
			return nil, funkyorm.NewTranslationError("materialize", col, "no compiled accessor for property "+prop.Name)
		}
		accessors[i] = a
	}
	return &Plan{columns: columns, accessors: accessors}, nil
}

func lookupByAlias(col string, byName map[string]*metadata.PropertyRef) (*metadata.PropertyRef, bool) {
	if p, ok := byName[col]; ok {
		return p, true
	}
	norm := metadata.Normalize(col)
	for name, p := range byName {
		if metadata.Normalize(name) == norm {
			return p, true
		}
	}
	return nil, false
}

// One scans a single row from rows into a freshly allocated *T, per plan.
func One[T any](rows funkyorm.Rows, plan *Plan) (*T, error) {
	var entity T
	v := reflect.ValueOf(&entity).Elem()

	raw := make([]any, len(plan.accessors))
	ptrs := make([]any, len(plan.accessors))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	for i, a := range plan.accessors {
		if err := assign(v, a, raw[i]); err != nil {
			return nil, fmt.Errorf("materialize: column %q: %w", plan.columns[i], err)
		}
	}
	return &entity, nil
}

// All streams every remaining row from rows into []*T, closing rows when
// done (spec.md §4.9 "single-pass streaming").
func All[T any](rows funkyorm.Rows, plan *Plan) ([]*T, error) {
	defer rows.Close()
	var out []*T
	for rows.Next() {
		entity, err := One[T](rows, plan)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Scalar coerces a single driver-returned value into V, reusing coerceInto's
// rules for use by the Aggregate Planner's Min/Max/Avg terminal calls. A nil
// raw value into a pointer V yields the zero (nil) V; into a non-pointer V
// it yields V's zero value — callers distinguish "no rows" from "row with a
// null selector" themselves.
func Scalar[V any](raw any) (V, error) {
	var out V
	v := reflect.ValueOf(&out).Elem()
	if err := coerceInto(v, raw); err != nil {
		return out, err
	}
	return out, nil
}

// assign coerces raw into the accessor's declared field on entity and writes
// it (spec.md §4.9 "Coercion rules").
func assign(entity reflect.Value, a metadata.Accessor, raw any) error {
	return coerceInto(a.FieldValue(entity), raw)
}

// coerceInto coerces raw (as returned by the driver: int64, float64, bool,
// []byte, string, time.Time, uuid-shaped string, or nil) into dst's declared
// type and writes it (spec.md §4.9 "Coercion rules").
func coerceInto(field reflect.Value, raw any) error {
	fieldType := field.Type()

	if raw == nil {
		field.Set(reflect.Zero(fieldType))
		return nil
	}

	// Nullable wrapping: a pointer field receives the address of a freshly
	// coerced, addressable value of its pointee type.
	if fieldType.Kind() == reflect.Ptr {
		elem := reflect.New(fieldType.Elem())
		if err := assignScalar(elem.Elem(), raw); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	return assignScalar(field, raw)
}

// assignScalar coerces raw into dst's type, covering numeric widening (the
// driver returns int64/float64 regardless of the column's declared SQL
// width), enum widening (a named integer type), and string/UUID conversion.
func assignScalar(dst reflect.Value, raw any) error {
	dstType := dst.Type()

	if dstType == reflect.TypeOf(uuid.UUID{}) {
		id, err := toUUID(raw)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(id))
		return nil
	}

	rv := reflect.ValueOf(raw)

	switch dstType.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(raw)
		if err != nil {
			return err
		}
		dst.SetInt(n)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt64(raw)
		if err != nil {
			return err
		}
		dst.SetUint(uint64(n))
		return nil

	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(raw)
		if err != nil {
			return err
		}
		dst.SetFloat(f)
		return nil

	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return fmt.Errorf("cannot coerce %T to bool", raw)
		}
		dst.SetBool(b)
		return nil

	case reflect.String:
		s, err := toString(raw)
		if err != nil {
			return err
		}
		dst.SetString(s)
		return nil

	default:
		if rv.Type().ConvertibleTo(dstType) {
			dst.Set(rv.Convert(dstType))
			return nil
		}
		return fmt.Errorf("cannot coerce %T to %s", raw, dstType)
	}
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case []byte:
		var n int64
		_, err := fmt.Sscanf(string(v), "%d", &n)
		return n, err
	}
	return 0, fmt.Errorf("cannot coerce %T to integer", raw)
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte:
		var f float64
		_, err := fmt.Sscanf(string(v), "%g", &f)
		return f, err
	}
	return 0, fmt.Errorf("cannot coerce %T to float", raw)
}

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", fmt.Errorf("cannot coerce %T to string", raw)
}

func toUUID(raw any) (uuid.UUID, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.Parse(string(v))
	}
	return uuid.UUID{}, fmt.Errorf("cannot coerce %T to uuid.UUID", raw)
}

// EntityByName resolves the full name->PropertyRef map for a type mapping,
// used by Build's ordinal matching.
func EntityByName(m *metadata.TypeMapping) map[string]*metadata.PropertyRef {
	out := make(map[string]*metadata.PropertyRef, len(m.Properties))
	for _, p := range m.Properties {
		out[p.Name] = p
	}
	return out
}
