package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "flow.db")
	c, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.InitSchema(context.Background(), []string{
		`CREATE TABLE IF NOT EXISTS t (k TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS t (k TEXT PRIMARY KEY)`,
	}))
	assert.NoError(t, c.Health(context.Background()))
	assert.FileExists(t, path)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestInitSchemaError(t *testing.T) {
	c, err := Open(context.Background(), filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer c.Close()
	assert.Error(t, c.InitSchema(context.Background(), []string{"NOT SQL"}))
}
