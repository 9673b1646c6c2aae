// Package main provides the lexo command-line tool.
package main

import (
	"os"

	"github.com/lexo-astro/lexo/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
