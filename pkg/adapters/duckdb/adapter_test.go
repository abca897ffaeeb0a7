package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/orderlake/internal/testutil"
	"github.com/leapstack-labs/orderlake/pkg/adapter"
	"github.com/leapstack-labs/orderlake/pkg/adapter/adaptertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, cfg adapter.Config) *Adapter {
	t.Helper()
	adp := New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(context.Background(), cfg))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "empty path defaults to in-memory",
			setupPath: func(_ *testing.T) string {
				return ""
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := tt.setupPath(t)
			adp := connect(t, adapter.Config{Path: dbPath})
			assert.True(t, adp.IsConnected())

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_Name(t *testing.T) {
	assert.Equal(t, "duckdb", New(nil).Name())
}

func TestConnect_WithSettings(t *testing.T) {
	adp := connect(t, adapter.Config{
		Path: ":memory:",
		Params: map[string]any{
			"settings": map[string]any{"threads": "2"},
		},
	})

	var threads string
	require.NoError(t, adp.DB.QueryRowContext(context.Background(), "SELECT current_setting('threads')").Scan(&threads))
	assert.Equal(t, "2", threads)
}

func TestConnect_InvalidParams(t *testing.T) {
	ctx := context.Background()

	err := New(nil).Connect(ctx, adapter.Config{Params: map[string]any{"bogus": true}})
	assert.ErrorContains(t, err, "invalid duckdb params")

	adp := New(nil)
	err = adp.Connect(ctx, adapter.Config{Params: map[string]any{
		"settings": map[string]any{"threads; DROP": "1"},
	}})
	assert.ErrorContains(t, err, "invalid duckdb setting name")
	assert.False(t, adp.IsConnected())
}

func TestAdapter_Conformance(t *testing.T) {
	adaptertest.Run(t, connect(t, adapter.Config{Path: ":memory:"}))
}

func TestAdapter_PersistsAcrossConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.duckdb")
	ctx := context.Background()

	first := New(nil)
	require.NoError(t, first.Connect(ctx, adapter.Config{Path: path}))
	adaptertest.Load(t, first)
	require.NoError(t, first.Close())

	second := connect(t, adapter.Config{Path: path})
	years, err := second.SalesByYear(ctx)
	require.NoError(t, err)
	assert.Len(t, years, len(adaptertest.ExpectedSalesByYear))
}
