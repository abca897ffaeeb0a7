// Package main provides the orderlake CLI for the online orders pipeline.
package main

import (
	"os"

	"github.com/leapstack-labs/orderlake/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
