// Package main is the entry point for aimsctl, the operator CLI.
package main

import (
	"os"

	"aims/cmd/aimsctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
