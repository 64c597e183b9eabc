package metadata

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Person struct {
	Id        int
	FirstName string
	LastName  string
	Age       int
	Ignored   string `db:"-"`
}

type Organization struct {
	Id   int
	Name string
}

type Address struct {
	Id            int
	CountryId     int
	OrganizationId int
}

type Country struct {
	Id   int
	Name string
}

type PersonDetail struct {
	Id                              int
	EmployerId                      int    `db:"link=Organization"`
	EmployerHeadquartersCountryName string `db:"remoteproperty=Organization:EmployerId.HeadquartersAddressId.CountryId.Name"`
}

type Log struct {
	Id      string `db:"pk"`
	Message string
}

func TestResolve_ConventionalPrimaryKey(t *testing.T) {
	r := NewRegistry()
	m, err := r.Resolve(reflect.TypeOf(Person{}))
	require.NoError(t, err)
	require.NotNil(t, m.PrimaryKey)
	assert.Equal(t, "Id", m.PrimaryKey.Name)
	assert.True(t, m.PrimaryKey.IsPK)
	assert.Equal(t, "Person", m.Table)
}

func TestResolve_NotMappedExcluded(t *testing.T) {
	r := NewRegistry()
	m, err := r.Resolve(reflect.TypeOf(Person{}))
	require.NoError(t, err)
	_, ok := m.PropertyByName("Ignored")
	assert.False(t, ok)
	assert.True(t, m.Unmapped["Ignored"])
}

func TestResolve_ExplicitPK(t *testing.T) {
	r := NewRegistry()
	m, err := r.Resolve(reflect.TypeOf(Log{}))
	require.NoError(t, err)
	require.NotNil(t, m.PrimaryKey)
	assert.Equal(t, "Id", m.PrimaryKey.Name)
}

func TestResolve_Idempotent(t *testing.T) {
	r := NewRegistry()
	m1, err := r.Resolve(reflect.TypeOf(Person{}))
	require.NoError(t, err)
	m2, err := r.Resolve(reflect.TypeOf(Person{}))
	require.NoError(t, err)
	assert.Same(t, m1, m2, "repeated resolution must return the same mapping identity")
	assert.Same(t, m1.AccessorPlan, m2.AccessorPlan)
}

func TestResolve_NoPrimaryKey(t *testing.T) {
	type NoPK struct {
		Name string
	}
	r := NewRegistry()
	_, err := r.Resolve(reflect.TypeOf(NoPK{}))
	require.Error(t, err)
}

func TestResolve_DuplicateColumn(t *testing.T) {
	type Dup struct {
		Id   int `db:"pk"`
		A    string `db:"column=same"`
		B    string `db:"column=same"`
	}
	r := NewRegistry()
	_, err := r.Resolve(reflect.TypeOf(Dup{}))
	require.Error(t, err)
}

func TestResolve_RemoteMarkers(t *testing.T) {
	r := NewRegistry()
	m, err := r.Resolve(reflect.TypeOf(PersonDetail{}))
	require.NoError(t, err)

	link, ok := m.RemoteInfo("EmployerId")
	require.True(t, ok)
	assert.Equal(t, RemoteLink, link.Kind)
	assert.Equal(t, "Organization", link.TargetTypeName)

	prop, ok := m.RemoteInfo("EmployerHeadquartersCountryName")
	require.True(t, ok)
	assert.Equal(t, RemotePropertyKind, prop.Kind)
	assert.Equal(t, "Organization", prop.TargetTypeName)
	assert.Equal(t, []string{"EmployerId", "HeadquartersAddressId", "CountryId", "Name"}, prop.KeyPath)
	assert.True(t, prop.Explicit())
}

func TestAccessorPlan_GetSet(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve(reflect.TypeOf(Person{}))
	require.NoError(t, err)
	plan, err := r.AccessorPlan(reflect.TypeOf(Person{}))
	require.NoError(t, err)

	p := Person{Id: 1, FirstName: "Jane"}
	v := reflect.ValueOf(&p).Elem()
	acc, ok := plan.Accessor("FirstName")
	require.True(t, ok)
	assert.Equal(t, "Jane", acc.Get(v))
	acc.Set(v, "Joan")
	assert.Equal(t, "Joan", p.FirstName)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Normalize("first_name"), Normalize("FirstName"))
	assert.Equal(t, "firstname", Normalize("First_Name"))
}
