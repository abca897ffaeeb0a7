// Package postgres provides the PostgreSQL warehouse adapter for orderlake.
//
// This file registers the PostgreSQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/orderlake/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/orderlake/pkg/adapter"
)

func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
