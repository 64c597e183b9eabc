package pathresolver_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FuncularLabs/funkyorm/metadata"
	"github.com/FuncularLabs/funkyorm/pathresolver"
)

// Employee -> Organization -> Address -> Country, a 3-hop explicit chain
// shaped like spec.md §8 scenario 4.
type Country struct {
	Id   int `db:"pk,identity"`
	Name string
}

type Address struct {
	Id        int `db:"pk,identity"`
	CountryId int `db:"link=Country"`
	City      string
}

type Organization struct {
	Id        int `db:"pk,identity"`
	AddressId int `db:"link=Address"`
	Name      string
}

type Employee struct {
	Id          int    `db:"pk,identity"`
	OrgId       int    `db:"link=Organization"`
	CountryName string `db:"remoteproperty=Country:OrgId.AddressId.CountryId.Name"`
	CountryId2  string `db:"remoteproperty=Country:OrgId.AddressId.CountryId.Id"`
}

func newRegistry(t *testing.T) *metadata.Registry {
	t.Helper()
	reg := metadata.NewRegistry()
	require.NoError(t, reg.MustResolve(
		reflect.TypeOf(Employee{}),
		reflect.TypeOf(Organization{}),
		reflect.TypeOf(Address{}),
		reflect.TypeOf(Country{}),
	))
	return reg
}

func TestResolve_ThreeHopExplicitChain(t *testing.T) {
	reg := newRegistry(t)
	r := pathresolver.NewResolver(reg, "t0")

	m, err := reg.Resolve(reflect.TypeOf(Employee{}))
	require.NoError(t, err)
	info, ok := m.RemoteInfo("CountryName")
	require.True(t, ok)

	path, err := r.Resolve(reflect.TypeOf(Employee{}), "CountryName", info)
	require.NoError(t, err)

	require.Len(t, path.Steps, 3)
	assert.Equal(t, "t0", path.Steps[0].FromAlias)
	assert.Equal(t, "Organization", path.Steps[0].ToType.Name())
	assert.Equal(t, "t1", path.Steps[0].ToAlias)

	assert.Equal(t, "t1", path.Steps[1].FromAlias)
	assert.Equal(t, "Address", path.Steps[1].ToType.Name())
	assert.Equal(t, "t2", path.Steps[1].ToAlias)

	assert.Equal(t, "t2", path.Steps[2].FromAlias)
	assert.Equal(t, "Country", path.Steps[2].ToType.Name())
	assert.Equal(t, "t3", path.Steps[2].ToAlias)

	assert.Equal(t, "t3", path.SelectAlias)
	assert.Equal(t, "Name", path.SelectColumn)

	require.Len(t, r.Joins(), 3)
}

func TestResolve_SharedPrefixReusesAliases(t *testing.T) {
	reg := newRegistry(t)
	r := pathresolver.NewResolver(reg, "t0")

	m, err := reg.Resolve(reflect.TypeOf(Employee{}))
	require.NoError(t, err)

	nameInfo, ok := m.RemoteInfo("CountryName")
	require.True(t, ok)
	idInfo, ok := m.RemoteInfo("CountryId2")
	require.True(t, ok)

	first, err := r.Resolve(reflect.TypeOf(Employee{}), "CountryName", nameInfo)
	require.NoError(t, err)
	second, err := r.Resolve(reflect.TypeOf(Employee{}), "CountryId2", idInfo)
	require.NoError(t, err)

	// Both markers traverse the identical Employee->Organization->Address->Country
	// chain, diverging only on the final selected column. Resolving the second
	// marker must not mint a new alias set: it reuses every hop's alias from
	// the first resolution.
	require.Len(t, first.Steps, 3)
	require.Len(t, second.Steps, 3)
	for i := range first.Steps {
		assert.Equal(t, first.Steps[i].ToAlias, second.Steps[i].ToAlias)
		assert.Equal(t, first.Steps[i].FromAlias, second.Steps[i].FromAlias)
	}
	assert.Equal(t, first.SelectAlias, second.SelectAlias)
	assert.Equal(t, "Name", first.SelectColumn)
	assert.Equal(t, "Id", second.SelectColumn)

	// The shared prefix was interned once: three hops total, not six.
	assert.Len(t, r.Joins(), 3)
}

func TestResolve_DivergingSuffixMintsOneNewAlias(t *testing.T) {
	reg := metadata.NewRegistry()

	type OrgB struct {
		Id        int `db:"pk,identity"`
		AddressId int `db:"link=Address"`
		Tag       string
	}
	type Emp2 struct {
		Id      int    `db:"pk,identity"`
		OrgId   int    `db:"link=OrgB"`
		OrgTag  string `db:"remoteproperty=OrgB:OrgId.Tag"`
		OrgCity string `db:"remoteproperty=Address:OrgId.AddressId.City"`
	}
	require.NoError(t, reg.MustResolve(
		reflect.TypeOf(Emp2{}),
		reflect.TypeOf(OrgB{}),
		reflect.TypeOf(Address{}),
	))

	r := pathresolver.NewResolver(reg, "t0")
	m, err := reg.Resolve(reflect.TypeOf(Emp2{}))
	require.NoError(t, err)

	tagInfo, ok := m.RemoteInfo("OrgTag")
	require.True(t, ok)
	cityInfo, ok := m.RemoteInfo("OrgCity")
	require.True(t, ok)

	tagPath, err := r.Resolve(reflect.TypeOf(Emp2{}), "OrgTag", tagInfo)
	require.NoError(t, err)
	cityPath, err := r.Resolve(reflect.TypeOf(Emp2{}), "OrgCity", cityInfo)
	require.NoError(t, err)

	require.Len(t, tagPath.Steps, 1)
	require.Len(t, cityPath.Steps, 2)
	// The shared first hop (Emp2->OrgB) reuses its alias; only the Address hop
	// that OrgTag never traverses is new.
	assert.Equal(t, tagPath.Steps[0].ToAlias, cityPath.Steps[0].ToAlias)
	assert.Len(t, r.Joins(), 2)
}
