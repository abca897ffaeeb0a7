// Package mongo provides the MongoDB document store adapter for orderlake.
//
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/orderlake/pkg/adapters/mongo"
package mongo

import (
	"log/slog"

	"github.com/leapstack-labs/orderlake/pkg/adapter"
)

func init() {
	adapter.Register("mongo", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
