package entity

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type audit struct {
	CreatedBy string
	UpdatedBy string `db:"changed_by"`
}

type invoice struct {
	Base
	audit
	Number     string
	TotalCents int64 `db:"total"`
	internal   string
	Customer   *testAuthor
}

func (i *invoice) TableName() string { return "invoices" }

type reservedID struct {
	Base
	ID int `db:"id"`
}

func (r *reservedID) TableName() string { return "reserved" }

type duplicated struct {
	Base
	A string `db:"name"`
	B string `db:"name"`
}

func (d *duplicated) TableName() string { return "duplicated" }

type basePointer struct {
	*Base
	Name string
}

func (b *basePointer) TableName() string { return "base_pointer" }

func TestDescribe(t *testing.T) {
	t.Parallel()

	td, err := Describe(&testBook{})
	require.NoError(t, err)

	assert.Equal(t, "books", td.Name)
	assert.Equal(t, KeyField, td.KeyField)
	assert.Equal(t, []string{"title", "pages", "author_id", "version"}, td.ColumnNames())

	version, ok := td.column("Version")
	require.True(t, ok)
	assert.True(t, version.IsAuto)
	assert.Equal(t, []string{"title", "pages", "author_id"}, sliceMap(td.insertColumns(), func(val ColumnInfo) string {
		return val.Name
	}))

	author, ok := td.column("author_id")
	require.True(t, ok)
	assert.True(t, author.IsEntity)
	assert.Equal(t, "Author", author.Field)
	assert.Equal(t, reflect.TypeOf(&testAuthor{}), author.Type)

	_, ok = td.column("Note")
	assert.False(t, ok)
}

func TestDescribeEmbeddedAndDefaultNames(t *testing.T) {
	t.Parallel()

	td, err := Describe(&invoice{})
	require.NoError(t, err)

	assert.Equal(t, []string{"created_by", "changed_by", "number", "total", "customer"}, td.ColumnNames())

	customer, _ := td.column("customer")
	assert.True(t, customer.IsEntity)

	number, _ := td.column("number")
	assert.False(t, number.IsEntity)

	v := reflect.ValueOf(&invoice{audit: audit{UpdatedBy: "ann"}}).Elem()
	changedBy, _ := td.column("changed_by")
	assert.Equal(t, "ann", v.FieldByIndex(changedBy.index).Interface())
}

func TestDescribeRejectsInvalidTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		e    Entity
		msg  string
	}{
		{"reserved id", &reservedID{}, `column "id" is reserved`},
		{"duplicate column", &duplicated{}, `duplicate column "name"`},
		{"base pointer", &basePointer{Base: &Base{}}, "must be embedded by value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Describe(tt.e)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDescribeIsCached(t *testing.T) {
	t.Parallel()

	first, err := columnsOf(reflect.TypeOf(&testAuthor{}))
	require.NoError(t, err)
	second, err := columnsOf(reflect.TypeOf(&testAuthor{}))
	require.NoError(t, err)

	assert.Equal(t, reflect.ValueOf(first).Pointer(), reflect.ValueOf(second).Pointer())
}

func TestIsEntityType(t *testing.T) {
	t.Parallel()

	assert.True(t, IsEntityType(reflect.TypeOf(&testAuthor{})))
	assert.False(t, IsEntityType(reflect.TypeOf(testAuthor{})))
	assert.False(t, IsEntityType(reflect.TypeOf("")))
	assert.False(t, IsEntityType(reflect.TypeOf(&audit{})))
	assert.False(t, IsEntityType(nil))
}

func TestParseDBTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag    string
		name   string
		isAuto bool
		skip   bool
	}{
		{"", "", false, false},
		{"title", "title", false, false},
		{"version,auto", "version", true, false},
		{"version, AUTO=true", "version", true, false},
		{"version,auto=false", "version", false, false},
		{",auto", "", true, false},
		{"name,size=20", "name", false, false},
		{"-", "", false, true},
		{" - ", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			name, isAuto, skip := parseDBTag(tt.tag)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.isAuto, isAuto)
			assert.Equal(t, tt.skip, skip)
		})
	}
}
