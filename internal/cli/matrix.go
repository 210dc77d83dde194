// internal/cli/matrix.go
package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	release "github.com/itchio/capsule-release"
	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/platform"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix <windows|darwin|linux> [386|amd64]",
	Short: "Show the platforms a build would produce",
	Long: `Resolve an OS selector to its platform specs without installing,
compiling or writing anything.

Examples:
  ci-compile matrix windows
  ci-compile matrix linux amd64
  ci-compile matrix --all`,
	Args: cobra.ArbitraryArgs,
	RunE: runMatrix,
}

var matrixAll bool

func init() {
	matrixCmd.Flags().BoolVar(&matrixAll, "all", false, "show every supported platform")
}

func runMatrix(cmd *cobra.Command, args []string) error {
	var specs []release.Spec
	var err error
	if matrixAll {
		if len(args) > 0 {
			return core.Errorf(core.ErrConfiguration, "parse arguments", "", "--all takes no arguments")
		}
		specs = platform.Supported()
	} else {
		specs, err = release.Matrix(config, args)
		if err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tTRIPLE\tLIBRARY\tRUNNER\tSTRIP\tTESTS")
	for _, s := range specs {
		tests := make([]string, 0, len(s.Tests))
		for _, t := range s.Tests {
			tests = append(tests, t.Name)
		}
		testList := "-"
		if len(tests) > 0 {
			testList = strings.Join(tests, ",")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n", s.Key(), s.Triple, s.Library, s.Runner, s.Strip, testList)
	}
	return w.Flush()
}
