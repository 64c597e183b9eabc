package query

import (
	"context"
	"reflect"
	"time"

	"github.com/FuncularLabs/funkyorm"
	"github.com/FuncularLabs/funkyorm/expr"
	"github.com/FuncularLabs/funkyorm/metadata"
	"github.com/FuncularLabs/funkyorm/sqlbuild"
	"github.com/FuncularLabs/funkyorm/sqlgraph"
)

// Insert writes entity as a new row (spec.md §4.8 "Insert", §8 scenario 6).
// Insert and Update are ordinary methods, unlike Select/Min/Max/Avg, because
// they reuse Query[T]'s own T rather than introducing a new type parameter.
// When the primary key is an identity column, the value SQL Server assigns
// is fetched back via the command's OUTPUT clause and written onto entity's
// primary-key field; a client-assigned (non-identity) primary key is
// inserted as given.
func (q *Query[T]) Insert(ctx context.Context, entity *T) error {
	m, err := q.registry.Resolve(q.ir.SourceType)
	if err != nil {
		return err
	}
	values, err := entityValues(m, entity)
	if err != nil {
		return err
	}
	cmd, err := sqlbuild.Insert(&sqlbuild.InsertPlan{Mapping: m, Values: values})
	if err != nil {
		q.logTranslation(err)
		return err
	}

	conn := q.execConn(ctx)
	start := time.Now()
	var execErr error
	if m.PrimaryKey != nil && m.PrimaryKey.Identity {
		var generated int64
		execErr = conn.QueryRowContext(ctx, cmd.SQL, cmd.Args()...).Scan(&generated)
		if execErr == nil {
			if acc, ok := m.AccessorPlan.Accessor(m.PrimaryKey.Name); ok {
				converted := reflect.ValueOf(generated).Convert(acc.Type())
				acc.Set(reflect.ValueOf(entity).Elem(), converted.Interface())
			}
		}
	} else {
		_, execErr = conn.ExecContext(ctx, cmd.SQL, cmd.Args()...)
	}
	q.recordExec(time.Since(start), execErr)
	if execErr != nil {
		return funkyorm.NewDriverError(cmd.SQL, paramNames(cmd), sqlgraph.Classify(execErr))
	}
	return nil
}

// Update writes entity's current field values over the row identified by
// its primary key (spec.md §4.8 "Update"). Every mapped non-key property is
// overwritten, matching the teacher's whole-entity save semantics rather
// than a partial patch.
func (q *Query[T]) Update(ctx context.Context, entity *T) error {
	m, err := q.registry.Resolve(q.ir.SourceType)
	if err != nil {
		return err
	}
	if m.PrimaryKey == nil {
		return funkyorm.NewMetadataError(m.Type.Name(), "no primary key: cannot update without one")
	}
	values, err := entityValues(m, entity)
	if err != nil {
		return err
	}
	acc, _ := m.AccessorPlan.Accessor(m.PrimaryKey.Name)
	pkValue := acc.Get(reflect.ValueOf(entity).Elem())

	cmd, err := sqlbuild.Update(&sqlbuild.UpdatePlan{Mapping: m, PKValue: pkValue, Values: values})
	if err != nil {
		q.logTranslation(err)
		return err
	}

	conn := q.execConn(ctx)
	start := time.Now()
	_, execErr := conn.ExecContext(ctx, cmd.SQL, cmd.Args()...)
	q.recordExec(time.Since(start), execErr)
	if execErr != nil {
		return funkyorm.NewDriverError(cmd.SQL, paramNames(cmd), sqlgraph.Classify(execErr))
	}
	return nil
}

// Delete removes every row matching predicate and reports the number of
// rows removed (spec.md §4.8 "Delete"). Unlike every other terminal call,
// Delete requires an active transaction already attached to ctx via
// funkyorm.WithTx; its absence is a caller error, not something the facade
// recovers from by opening one itself (spec.md §5 "Shared-resource policy",
// "Transactions are never opened implicitly").
func (q *Query[T]) Delete(ctx context.Context, predicate expr.Node) (int64, error) {
	tx, ok := funkyorm.TxFromContext(ctx)
	if !ok {
		return 0, funkyorm.ErrDeleteOutsideTransaction
	}
	m, err := q.registry.Resolve(q.ir.SourceType)
	if err != nil {
		return 0, err
	}
	cmd, err := sqlbuild.Delete(q.newContext(), m, predicate)
	if err != nil {
		q.logTranslation(err)
		return 0, err
	}

	start := time.Now()
	result, execErr := tx.ExecContext(ctx, cmd.SQL, cmd.Args()...)
	q.recordExec(time.Since(start), execErr)
	if execErr != nil {
		return 0, funkyorm.NewDriverError(cmd.SQL, paramNames(cmd), sqlgraph.Classify(execErr))
	}
	return result.RowsAffected()
}

// entityValues reads every mapped property's current value off entity
// through the compiled accessor plan, keyed by property name (spec.md §4.1
// "Accessor plan").
func entityValues(m *metadata.TypeMapping, entity any) (map[string]any, error) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil, funkyorm.NewMetadataError(m.Type.Name(), "Insert/Update requires a non-nil pointer to the entity")
	}
	v = v.Elem()
	values := make(map[string]any, len(m.Properties))
	for _, p := range m.Properties {
		acc, ok := m.AccessorPlan.Accessor(p.Name)
		if !ok {
			continue
		}
		values[p.Name] = acc.Get(v)
	}
	return values, nil
}
