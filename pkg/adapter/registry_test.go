package adapter

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"duckdb", "mongo", "postgres"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "fake_db", "error should mention the unknown type")
	assert.Contains(t, msg, "mongo", "error should list the available adapters")
	assert.Contains(t, msg, "orderlake.yaml", "error should mention config file")
	assert.ErrorIs(t, err, ErrUnknownAdapter)
}

func TestRegister(t *testing.T) {
	Register("test_adapter_internal", func(_ *slog.Logger) Adapter { return nil })

	assert.True(t, IsRegistered("test_adapter_internal"))

	factory, ok := Get("test_adapter_internal")
	assert.True(t, ok)
	assert.NotNil(t, factory)
	assert.Contains(t, ListAdapters(), "test_adapter_internal")
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	factory := func(_ *slog.Logger) Adapter { return nil }
	Register("test_adapter_dup", factory)

	assert.Panics(t, func() { Register("test_adapter_dup", factory) })
	assert.Panics(t, func() { Register("", factory) })
	assert.Panics(t, func() { Register("test_adapter_nil", nil) })
	assert.False(t, IsRegistered("test_adapter_nil"))
}

func TestNewAdapter_EmptyType(t *testing.T) {
	_, err := NewAdapter(Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "adapter type not specified", err.Error())
}

func TestDialectPlaceholders(t *testing.T) {
	question := Dialect{Name: "duckdb"}
	numbered := Dialect{Name: "postgres", NumberedPlaceholders: true}

	assert.Equal(t, "?", question.Placeholder(3))
	assert.Equal(t, "$3", numbered.Placeholder(3))
	assert.Equal(t, []string{"$1", "$2"}, numbered.Placeholders(2))

	assert.Equal(t,
		"INSERT INTO order_lines (order_id, product_unit_value) VALUES ($1, CAST($2 AS DECIMAL(10, 2)))",
		insertSQL(numbered, "order_lines", "order_id", "product_unit_value"))
	assert.Equal(t,
		"INSERT INTO categories (id, name) VALUES (?, ?)",
		insertSQL(question, "categories", "id", "name"))
}
