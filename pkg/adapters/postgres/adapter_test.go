package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/leapstack-labs/orderlake/internal/testutil"
	"github.com/leapstack-labs/orderlake/pkg/adapter"
	"github.com/leapstack-labs/orderlake/pkg/adapter/adaptertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "online_orders",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=online_orders sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: adapter.Config{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name:     "defaults",
			config:   adapter.Config{Database: "mydb"},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name: "schema and extra options",
			config: adapter.Config{
				Database: "analytics",
				Schema:   "orders",
				Options:  map[string]string{"application_name": "orderlake", "connect_timeout": "5"},
			},
			expected: "host=localhost port=5432 dbname=analytics sslmode=disable search_path=orders application_name=orderlake connect_timeout=5",
		},
		{
			name:     "password with spaces is quoted",
			config:   adapter.Config{Database: "db", Password: "it's secret"},
			expected: `host=localhost port=5432 dbname=db sslmode=disable password='it\'s secret'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestAdapter_Name(t *testing.T) {
	adp := New(nil)
	assert.Equal(t, "postgres", adp.Name())
	assert.False(t, adp.IsConnected())
}

// TestAdapter_Conformance runs against a live server when
// ORDERLAKE_TEST_POSTGRES_DSN is set.
func TestAdapter_Conformance(t *testing.T) {
	dsn := os.Getenv("ORDERLAKE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ORDERLAKE_TEST_POSTGRES_DSN not set")
	}

	adp := New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(context.Background(), adapter.Config{URI: dsn}))
	t.Cleanup(func() { _ = adp.Close() })

	adaptertest.Run(t, adp)
}
