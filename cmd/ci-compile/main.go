// cmd/ci-compile/main.go
package main

import (
	"fmt"
	"os"

	"github.com/itchio/capsule-release/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprint(os.Stderr, cli.FormatError(err, cli.Debug()))
		os.Exit(1)
	}
}
