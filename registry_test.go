package entity

import (
	"context"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTag struct {
	Base
	Label    string `db:"label"`
	fromCtor bool
}

func (tg *testTag) TableName() string { return "tags" }

type testPost struct {
	Base
	Tag *testTag `db:"tag_id"`
}

func (p *testPost) TableName() string { return "posts" }

func init() {
	Register(func() Entity { return &testTag{fromCtor: true} })
}

func TestInstantiate(t *testing.T) {
	t.Parallel()

	e, err := instantiate(reflect.TypeOf(&testTag{}))
	require.NoError(t, err)
	assert.True(t, e.(*testTag).fromCtor)

	e, err = instantiate(reflect.TypeOf(&testAuthor{}))
	require.NoError(t, err)
	assert.IsType(t, &testAuthor{}, e)

	_, err = instantiate(reflect.TypeOf(audit{}))
	assert.Error(t, err)
}

func TestLoadUsesRegisteredConstructor(t *testing.T) {
	t.Parallel()

	exec, mock := newMockExecutor(t, "sqlmock")
	p := New[testPost](exec, WithLogger(discardLogger()))

	mock.ExpectPrepare("SELECT id,tag_id FROM posts WHERE id = ?").
		ExpectQuery().
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tag_id"}).AddRow(1, 5))
	mock.ExpectPrepare("SELECT id,label FROM tags WHERE id = ?").
		ExpectQuery().
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}).AddRow(5, "go"))

	require.True(t, p.Load(context.Background(), 1))
	require.NoError(t, mock.ExpectationsWereMet())
	require.NotNil(t, p.Tag)
	assert.True(t, p.Tag.fromCtor)
	assert.Equal(t, "go", p.Tag.Label)
	assert.Equal(t, uint64(5), p.Tag.ID())
	assert.Same(t, exec, p.Tag.exec)
}
