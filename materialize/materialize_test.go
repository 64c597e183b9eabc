package materialize_test

import (
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FuncularLabs/funkyorm/materialize"
	"github.com/FuncularLabs/funkyorm/metadata"
)

type widget struct {
	Id       uuid.UUID
	Name     string
	Quantity int32
	Price    float64
	Note     *string
}

func TestBuildAndAll_CoercesDriverValues(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	rows := sqlmock.NewRows([]string{"Id", "Name", "Quantity", "Price", "Note"}).
		AddRow(id.String(), "Widget", int64(7), float64(1.5), nil).
		AddRow(id.String(), "Other", int64(3), float64(2.25), "has a note")

	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	sqlRows, err := db.Query("SELECT * FROM widget")
	require.NoError(t, err)

	reg := metadata.NewRegistry()
	m, err := reg.Resolve(reflect.TypeOf(widget{}))
	require.NoError(t, err)

	cols, err := sqlRows.Columns()
	require.NoError(t, err)
	plan, err := materialize.Build(cols, m.AccessorPlan, materialize.EntityByName(m))
	require.NoError(t, err)

	out, err := materialize.All[widget](sqlRows, plan)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, id, out[0].Id)
	assert.Equal(t, "Widget", out[0].Name)
	assert.Equal(t, int32(7), out[0].Quantity)
	assert.Equal(t, 1.5, out[0].Price)
	assert.Nil(t, out[0].Note)

	require.NotNil(t, out[1].Note)
	assert.Equal(t, "has a note", *out[1].Note)
}

func TestScalar_NumericWidening(t *testing.T) {
	v, err := materialize.Scalar[int32](int64(42))
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestScalar_NilIntoPointerYieldsNil(t *testing.T) {
	v, err := materialize.Scalar[*float64](nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}
