// Package main is the entry point for the disruptor CLI.
package main

import (
	"os"

	"chaos-disruptor/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
