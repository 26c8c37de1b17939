// Package main is the entry point for the Bookline CLI application.
// It manages a persistent authenticated session against the Bookline API.
package main

import (
	"bookline/cli/cmd"
)

// main is the entry point for the Bookline CLI application.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
