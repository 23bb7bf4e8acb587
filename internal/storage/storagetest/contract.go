// Package storagetest checks that a Repository honours the storage contract.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetrina/internal/core"
	"vetrina/internal/storage"
)

// Product returns a valid product with the given id.
func Product(id string, cents int64) core.Product {
	return core.Product{
		ID:        id,
		Name:      "Product " + id,
		Category:  "electronics",
		Status:    "in_stock",
		Price:     core.Money{Cents: cents},
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// Run exercises repo, which must start empty.
func Run(t *testing.T, repo storage.Repository[core.Product]) {
	t.Helper()
	ctx := context.Background()

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Create(ctx, Product(id, 100)))
	}

	err = repo.Create(ctx, Product("a", 200))
	assert.ErrorIs(t, err, storage.ErrConflict)

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Price.Cents)
	assert.True(t, got.CreatedAt.Equal(Product("a", 0).CreatedAt))

	_, err = repo.Get(ctx, "zzz")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, repo.Update(ctx, Product("a", 250)))
	got, err = repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.Price.Cents)

	assert.ErrorIs(t, repo.Update(ctx, Product("zzz", 1)), storage.ErrNotFound)

	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, keys(list), "insertion order survives updates")

	require.NoError(t, repo.Delete(ctx, "a"))
	assert.ErrorIs(t, repo.Delete(ctx, "a"), storage.ErrNotFound)

	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, keys(list))
}

func keys(ps []core.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}
