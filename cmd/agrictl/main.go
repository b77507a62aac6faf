// Package main is agrictl, the operator CLI. It runs the engine's pure operations
// against local JSON files without a server or database.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
