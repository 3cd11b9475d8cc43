// Package main provides the entry point for the wayfairmcp CLI.
package main

import (
	"fmt"
	"os"

	"github.com/tomrikert/wayfair-mcp-server/cmd/wayfairmcp/cmd"
	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, wferrors.FormatForCLI(err))
		os.Exit(cmd.ExitCode(err))
	}
}
