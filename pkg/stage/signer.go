// pkg/stage/signer.go
package stage

import (
	"strings"

	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/env"
	"github.com/itchio/capsule-release/pkg/shell"
)

// FilePlaceholder is replaced with the artifact path in signer arguments
const FilePlaceholder = "{file}"

// signCommand renders the signer invocation for one file. The path is
// appended when no argument mentions the placeholder.
func signCommand(e *env.Environment, signer *core.SignerConfig, file string) shell.Command {
	args := make([]string, 0, len(signer.Args)+1)
	found := false
	for _, a := range signer.Args {
		if strings.Contains(a, FilePlaceholder) {
			found = true
			a = strings.ReplaceAll(a, FilePlaceholder, file)
		}
		args = append(args, a)
	}
	if !found {
		args = append(args, file)
	}
	return e.Command(e.Tool(signer.Command), args...)
}
