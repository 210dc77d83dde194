// internal/cli/root.go
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itchio/capsule-release/internal/version"
	"github.com/itchio/capsule-release/pkg/core"
)

var (
	cfgFile   string
	workspace string
	artifacts string
	failFast  bool
	archive   bool
	skipTests bool
	debug     bool
	config    *core.Config
)

// rootCmd builds one OS selector's worth of platforms
var rootCmd = &cobra.Command{
	Use:   "ci-compile <windows|darwin|linux> [386|amd64]",
	Short: "Build, test and stage capsule release artifacts",
	Long: `ci-compile - capsule release builds

Installs the Rust toolchain for each target, compiles libcapsule and
capsulerun, runs the injection tests and stages the results into
compile-artifacts/<os>-<arch>.

Examples:
  ci-compile windows          # builds windows-386 then windows-amd64
  ci-compile darwin           # builds darwin-amd64
  ci-compile linux 386
  ci-compile linux amd64 --archive`,
	Version:           version.String(),
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: initConfig,
	RunE:              runBuild,
	SilenceErrors:     true,
	SilenceUsage:      true,
}

// Execute executes the root command. SIGINT and SIGTERM cancel the
// running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// Debug reports whether --debug was given
func Debug() bool {
	return debug || (config != nil && config.Debug)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/capsule-release/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&workspace, "workspace", "", "repository root containing the crates (default is the current directory)")
	rootCmd.PersistentFlags().StringVar(&artifacts, "artifacts", "", "artifacts root, relative to the workspace (default is compile-artifacts)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging and error stack traces")

	rootCmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first failing platform")
	rootCmd.Flags().BoolVar(&archive, "archive", false, "bundle each staged directory into <key>.tar.xz")
	rootCmd.Flags().BoolVar(&skipTests, "skip-tests", false, "do not run injection tests")

	// Add commands
	rootCmd.AddCommand(matrixCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	var err error
	config, err = core.LoadConfig(cfgFile)
	if err != nil {
		return core.NewError(core.ErrConfiguration, "load config", "", err)
	}

	// Override config with flags
	if workspace != "" {
		config.Workspace = workspace
	}
	if artifacts != "" {
		config.ArtifactsDir = artifacts
	}
	if failFast {
		config.FailFast = true
	}
	if archive {
		config.Archive = true
	}
	if skipTests {
		config.SkipTests = true
	}
	if debug {
		config.Debug = true
	}
	return nil
}
