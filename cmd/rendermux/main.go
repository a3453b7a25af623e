// Package main is the entry point for the rendermux application.
package main

import (
	"os"

	"github.com/rendermux/rendermux/cmd/rendermux/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
