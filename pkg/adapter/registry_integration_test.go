package adapter_test

import (
	"testing"

	"github.com/leapstack-labs/orderlake/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/orderlake/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/orderlake/pkg/adapters/mongo"
	_ "github.com/leapstack-labs/orderlake/pkg/adapters/postgres"
)

func TestIsRegistered(t *testing.T) {
	tests := []struct {
		name        string
		adapterName string
		expected    bool
	}{
		{"duckdb registered", "duckdb", true},
		{"postgres registered", "postgres", true},
		{"mongo registered", "mongo", true},
		{"unknown not registered", "unknown_db", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.IsRegistered(tt.adapterName))
		})
	}
}

func TestNewAdapter_Success(t *testing.T) {
	for _, name := range []string{"duckdb", "postgres", "mongo"} {
		adp, err := adapter.NewAdapter(adapter.Config{Type: name}, nil)
		require.NoError(t, err, "NewAdapter(%s)", name)
		require.NotNil(t, adp)
		assert.Equal(t, name, adp.Name())
	}
}

func TestNewAdapter_UnknownType(t *testing.T) {
	_, err := adapter.NewAdapter(adapter.Config{Type: "unknown_adapter"}, nil)
	require.Error(t, err)

	var unknownErr *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "unknown_adapter", unknownErr.Type)
	assert.Contains(t, unknownErr.Available, "duckdb")
}

func TestAdapterBeforeConnect(t *testing.T) {
	for _, name := range []string{"duckdb", "postgres", "mongo"} {
		t.Run(name, func(t *testing.T) {
			adp, err := adapter.NewAdapter(adapter.Config{Type: name}, nil)
			require.NoError(t, err)

			err = adp.CreateSchema(t.Context())
			assert.ErrorIs(t, err, adapter.ErrNotConnected)
			assert.NoError(t, adp.Close())
		})
	}
}
