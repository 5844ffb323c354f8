// Package main is the entry point for the mediactl command-line tool.
package main

import (
	"os"

	"github.com/emanuelef/yt-resolve-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
