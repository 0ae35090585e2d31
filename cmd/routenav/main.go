// Package main provides the entry point for the routenav CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/routenav/cmd/routenav/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
