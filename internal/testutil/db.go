package testutil

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agrobench/agrobench/internal/fixtures"
	"github.com/agrobench/agrobench/internal/registry"
	"github.com/agrobench/agrobench/internal/storage"
)

// NewTestDB opens an in-memory DuckDB database with the schema applied and
// the sample dataset loaded. It is closed when the test ends.
func NewTestDB(t *testing.T) (*storage.DB, *registry.Registry) {
	t.Helper()

	db, reg := NewEmptyTestDB(t)

	_, err := fixtures.LoadSample(context.Background(), db, reg)
	require.NoError(t, err, "failed to load sample fixtures")

	return db, reg
}

// NewEmptyTestDB opens an in-memory database with the schema but no rows
func NewEmptyTestDB(t *testing.T) (*storage.DB, *registry.Registry) {
	t.Helper()

	db, err := storage.OpenMemory(context.Background())
	require.NoError(t, err, "failed to open test database")

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db, registry.Default()
}

// Seed loads an inline YAML fixture document into db
func Seed(t *testing.T, db *storage.DB, reg *registry.Registry, doc string) {
	t.Helper()

	_, err := fixtures.Load(context.Background(), db, reg, bytes.NewBufferString(doc))
	require.NoError(t, err, "failed to seed fixtures")
}
