package shrink

import (
	"context"
	"fmt"
	"path/filepath"

	"dexweave/internal/variant"
)

// Rewriter builds the dedicated shrink pass for a test variant and rewrites
// the packaging step's inputs to the single archive that pass produces.
// Without the rewrite, downstream packaging would double-count classes
// already folded into the shrunk archive and risk per-artifact reference
// limits.
type Rewriter struct {
	Shrinker Shrinker

	// OutputDir is where the produced archive is written.
	OutputDir string

	// RulesOverridePath, when set, names a rule file that fully replaces
	// the default rule block.
	RulesOverridePath string
}

// Rewrite constructs the test-scoped shrink configuration and registers the
// pre-execution action on the packaging step that runs the pass and swaps
// the step's inputs.
//
// Configuration shape:
//   - inputs: the test variant's compiled classes plus every archive
//     already staged for packaging
//   - libraries: the test compile classpath minus the staged archives
//     (canonical-path set difference), plus the platform boot classpath
//   - rules: the default block or the full-replacement override, plus two
//     mandatory keep rules for the test variant's package and its tested
//     variant's package
func (r *Rewriter) Rewrite(testVariant *variant.BuildVariant) (*variant.ShrinkConfiguration, error) {
	if testVariant == nil || !testVariant.IsTest() {
		return nil, configf("rewriter requires a test variant")
	}
	pkgStep := testVariant.Packaging
	if pkgStep == nil {
		return nil, configf("test variant %q has no packaging step", testVariant.Name)
	}
	if testVariant.Compile == nil {
		return nil, configf("test variant %q has no compile step", testVariant.Name)
	}

	// The "-test-" infix keeps the produced archive apart from the archive a
	// self-shrinking test variant already staged as <name>-shrunk.jar in the
	// same directory; the pass must never read and write the same path.
	outArchive := filepath.Join(r.OutputDir, testVariant.Name+"-test-shrunk.jar")
	cfg := variant.NewShrinkConfiguration(outArchive)

	cfg.AddInput(testVariant.Compile.DestDir)
	staged := variant.Classpath(pkgStep.Inputs)
	outKey := variant.CanonicalPath(outArchive)
	for _, archive := range staged {
		if variant.CanonicalPath(archive) == outKey {
			return nil, configf("test shrink output %q collides with a staged packaging input", outArchive)
		}
		cfg.AddInput(archive)
	}

	for _, lib := range testVariant.Compile.Classpath.Minus(staged) {
		cfg.AddLibrary(lib)
	}
	for _, boot := range pkgStep.BootClasspath {
		cfg.AddLibrary(boot)
	}

	rules := DefaultRules()
	if r.RulesOverridePath != "" {
		override, err := LoadOverride(r.RulesOverridePath)
		if err != nil {
			return nil, err
		}
		rules = override
	}
	cfg.SetRules(rules)
	cfg.AppendRules(
		KeepPackageRule(testVariant.Package),
		KeepPackageRule(testVariant.Tested.Package),
	)

	action := &rewriteAction{
		shrinker:  r.Shrinker,
		cfg:       cfg,
		packaging: pkgStep,
	}
	if err := pkgStep.Step.AddPreAction(action); err != nil {
		return nil, fmt.Errorf("registering rewrite on %q: %w", pkgStep.Step.Name(), err)
	}
	return cfg, nil
}

// rewriteAction runs the dedicated shrink pass, then replaces the packaging
// step's input-file list with exactly the produced archive and clears the
// staged-library list.
type rewriteAction struct {
	shrinker  Shrinker
	cfg       *variant.ShrinkConfiguration
	packaging *variant.PackagingStep
}

func (a *rewriteAction) Name() string { return "test-shrink-rewrite" }

func (a *rewriteAction) Run(ctx context.Context) error {
	if err := a.shrinker.Shrink(ctx, a.cfg); err != nil {
		return err
	}
	a.packaging.ReplaceInputs(a.cfg.OutputArchive())
	return nil
}
