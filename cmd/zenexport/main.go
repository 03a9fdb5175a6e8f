// Package main is the entry point for the zenexport binary.
package main

import (
	"os"

	cli "zenexport/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
