// pkg/pipeline/resolve.go
package pipeline

import (
	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/platform"
)

// Resolve turns CLI arguments into the specs to build, with the per-key
// overrides of cfg applied. It has no side effects.
func Resolve(cfg *core.Config, args []string) ([]platform.Spec, error) {
	sel, err := platform.ParseSelector(args)
	if err != nil {
		return nil, err
	}

	specs, err := platform.Expand(sel)
	if err != nil {
		return nil, err
	}

	for i := range specs {
		if err := applyOverrides(cfg, &specs[i]); err != nil {
			return nil, err
		}
	}

	if err := platform.CheckUniqueKeys(specs); err != nil {
		return nil, err
	}
	return specs, nil
}

func applyOverrides(cfg *core.Config, spec *platform.Spec) error {
	if cfg == nil {
		return nil
	}
	override, ok := cfg.Platforms[spec.Key()]
	if !ok {
		return nil
	}

	if override.Strip != nil {
		if *override.Strip && spec.OS == platform.Windows {
			return core.Errorf(core.ErrConfiguration, "resolve spec", spec.Key(), "stripping is not supported on windows")
		}
		spec.Strip = *override.Strip
	}

	if override.Tests != nil {
		tests := make([]platform.TestSpec, 0, len(override.Tests))
		for _, t := range override.Tests {
			if t.Name == "" {
				return core.Errorf(core.ErrConfiguration, "resolve spec", spec.Key(), "injection test without a name")
			}
			triple := t.Triple
			if triple == "" {
				triple = spec.Triple
			}
			tests = append(tests, platform.TestSpec{Name: t.Name, Triple: triple})
		}
		spec.Tests = tests
	}
	return nil
}
