package shrink

import (
	"dexweave/internal/buildgraph"
	"dexweave/internal/variant"
)

// Coordinator extends a tested variant's shrink step with a test variant's
// reachability inputs.
//
// Test sources may reference app classes no app entry point reaches; unless
// the shrinker's closure sees the test classes, it will discard classes the
// tests require.
type Coordinator struct{}

// Extend adds the test variant's compiled-output directory to the tested
// variant's shrink input set and the test variant's compile classpath to its
// library set (resolution only, never emitted). It also wires the graph so
// the shrink step runs after the test variant's compile step.
//
// A tested variant without a shrink step makes this a no-op. Calling Extend
// with a non-test variant is a configuration error.
func (Coordinator) Extend(b *buildgraph.Builder, testVariant *variant.BuildVariant) error {
	if testVariant == nil || !testVariant.IsTest() {
		return configf("coordinator requires a test variant")
	}
	tested := testVariant.Tested
	if tested.Shrink == nil {
		return nil
	}
	if testVariant.Compile == nil {
		return configf("test variant %q has no compile step", testVariant.Name)
	}

	cfg := tested.Shrink.Config
	cfg.AddInput(testVariant.Compile.DestDir)
	for _, entry := range testVariant.Compile.Classpath {
		cfg.AddLibrary(entry)
	}

	if !hasDeclaredInput(tested.Shrink.Step, testVariant.Compile.DestDir) {
		if err := tested.Shrink.Step.AddInput(testVariant.Compile.DestDir); err != nil {
			return err
		}
	}
	return b.AddEdge(testVariant.Compile.Step.Name(), tested.Shrink.Step.Name())
}

func hasDeclaredInput(s *buildgraph.Step, path string) bool {
	for _, in := range s.Inputs() {
		if in == path {
			return true
		}
	}
	return false
}
