package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetrina/internal/core"
	"vetrina/internal/storage"
	"vetrina/internal/storage/storagetest"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "nested", "vetrina.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStoreContract(t *testing.T) {
	db := openDB(t)
	storagetest.Run(t, storage.NewSQLiteStore[core.Product](db, core.KindProducts))
}

func TestSQLiteStoreKindsAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	products := storage.NewSQLiteStore[core.Product](db, core.KindProducts)
	events := storage.NewSQLiteStore[core.Event](db, core.KindEvents)

	require.NoError(t, products.Create(ctx, storagetest.Product("same-id", 100)))
	require.NoError(t, events.Create(ctx, core.Event{ID: "same-id", Title: "Concert", Status: "scheduled"}))

	evs, err := events.List(ctx)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "Concert", evs[0].Title)

	require.NoError(t, products.Delete(ctx, "same-id"))
	_, err = events.Get(ctx, "same-id")
	assert.NoError(t, err)
	assert.NoError(t, products.Ping(ctx))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vetrina.db")
	db, err := storage.Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	require.NoError(t, storage.RunMigrations(path))
}
