package order

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	s, backend, err := Open(context.Background(), StoreConfig{URL: "memory://"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, "memory", backend)
	assert.IsType(t, &MemStore{}, s)
}

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.db")

	s, backend, err := Open(context.Background(), StoreConfig{URL: "sqlite://" + path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, "sqlite", backend)
	assert.FileExists(t, path)
}

func TestOpen_Rejects(t *testing.T) {
	for _, raw := range []string{"mysql://localhost/orders", "orders.db", "dynamodb://", "::"} {
		_, _, err := Open(context.Background(), StoreConfig{URL: raw})
		assert.Error(t, err, raw)
	}
}

func TestSQLitePath(t *testing.T) {
	cases := map[string]string{
		"sqlite:///var/lib/orders.db":      "/var/lib/orders.db",
		"sqlite://orders.db":               "orders.db",
		"sqlite://data/orders.db?mode=rwc": "data/orders.db?mode=rwc",
	}
	for raw, want := range cases {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, sqlitePath(u), raw)
	}
}

func TestMongoDatabase(t *testing.T) {
	cases := []struct {
		raw, want string
	}{
		{"mongodb://localhost:27017/shop", "shop"},
		{"mongodb://localhost:27017/", "orders"},
		{"mongodb://localhost:27017", "orders"},
		{"mongodb+srv://cluster.example/shop?retryWrites=true", "shop"},
	}
	for _, tc := range cases {
		u, err := url.Parse(tc.raw)
		require.NoError(t, err)
		assert.Equal(t, tc.want, mongoDatabase(u, "orders"), tc.raw)
	}
}
