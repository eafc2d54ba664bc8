package service

import (
	"context"
	"strings"
	"testing"

	"github.com/Skotchmaster/inventory_api/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryService_CreateAndGet(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.Categories.Create(ctx, transport.CategoryRequest{Name: "Tools", Description: "Hand tools"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := env.Categories.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tools", got.Name)
	assert.Equal(t, "Hand tools", got.Description)

	_, err = env.Categories.Get(ctx, created.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{"category_created"}, env.Events.types())
}

func TestCategoryService_List(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	empty, err := env.Categories.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	env.mustCategory(t, "A")
	env.mustCategory(t, "B")

	all, err := env.Categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].Name)
	assert.Equal(t, "B", all[1].Name)
}

func TestCategoryService_Create_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  transport.CategoryRequest
	}{
		{name: "blank name", req: transport.CategoryRequest{Name: "   "}},
		{name: "name too long", req: transport.CategoryRequest{Name: strings.Repeat("x", 101)}},
		{name: "description too long", req: transport.CategoryRequest{Name: "ok", Description: strings.Repeat("d", 501)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Categories.Create(ctx, tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := env.Categories.Create(ctx, transport.CategoryRequest{Name: strings.Repeat("é", 100)})
	assert.NoError(t, err, "limit counts characters, not bytes")
}

func TestCategoryService_Create_DuplicateName(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCategory(t, "Books")
	_, err := env.Categories.Create(ctx, transport.CategoryRequest{Name: "Books"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCategoryService_Update(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	books := env.mustCategory(t, "Books")
	env.mustCategory(t, "Music")

	updated, err := env.Categories.Update(ctx, books.ID, transport.CategoryRequest{Name: "Books", Description: "same name is fine"})
	require.NoError(t, err)
	assert.Equal(t, "same name is fine", updated.Description)

	_, err = env.Categories.Update(ctx, books.ID, transport.CategoryRequest{Name: "Music"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = env.Categories.Update(ctx, 9999, transport.CategoryRequest{Name: "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategoryService_Delete(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	empty := env.mustCategory(t, "Empty")
	ok, err := env.Categories.Delete(ctx, empty.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = env.Categories.Get(ctx, empty.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err = env.Categories.Delete(ctx, empty.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCategoryService_Delete_WithProducts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	c := env.mustCategory(t, "Busy")
	env.mustProduct(t, "Hammer", "", c.ID)

	ok, err := env.Categories.Delete(ctx, c.ID)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "Cannot delete category that contains products", err.Error())

	still, err := env.Categories.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Busy", still.Name)
}
