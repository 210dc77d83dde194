// internal/cli/version.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itchio/capsule-release/internal/version"
	"github.com/itchio/capsule-release/pkg/platform"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ci-compile version %s\n", version.String())
		if host, err := platform.Detect(); err == nil {
			fmt.Fprintf(out, "host: %s\n", host)
		} else {
			fmt.Fprintf(out, "host: unsupported (%v)\n", err)
		}
		fmt.Fprintln(out, "https://github.com/itchio/capsule")
	},
}
