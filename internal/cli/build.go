// internal/cli/build.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	release "github.com/itchio/capsule-release"
	"github.com/itchio/capsule-release/internal/version"
)

func runBuild(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	opts := []release.Option{
		release.WithReporter(newProgress(out)),
		release.WithVersion(version.Version()),
	}
	if config.Debug {
		opts = append(opts, release.WithOutput(out, cmd.ErrOrStderr()))
	}

	b, err := release.New(config, opts...)
	if err != nil {
		return err
	}

	report, err := b.Run(cmd.Context(), args)
	if report != nil {
		printSummary(out, report)
	}
	if err != nil {
		return fmt.Errorf("release build failed: %w", err)
	}
	return nil
}
