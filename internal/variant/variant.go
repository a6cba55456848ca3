package variant

import (
	"dexweave/internal/buildgraph"
)

// BuildVariant is one configured build output. It is created by the host
// after project configuration is evaluated and is read-only to the engines:
// they mutate the step and shrink-configuration state it points at, not the
// variant itself.
type BuildVariant struct {
	// Name is the variant's logical identifier, e.g. "debug" or "debugTest".
	Name string

	// Package is the variant's package identifier.
	Package string

	// Tested references the non-test variant this variant exercises.
	// Nil for non-test variants.
	Tested *BuildVariant

	Compile   *CompileStep
	Shrink    *ShrinkStep // nil when the variant performs no shrinking
	Packaging *PackagingStep
}

// IsTest reports whether the variant is a test variant.
func (v *BuildVariant) IsTest() bool { return v.Tested != nil }

// CompileStep wraps a variant's compile step together with the inputs the
// joint-compile decorator needs: source roots, the resolution classpath and
// the shared destination directory both compilers emit into.
type CompileStep struct {
	Step       *buildgraph.Step
	SourceDirs []string
	Classpath  Classpath
	DestDir    string
}

// ShrinkStep wraps a variant's shrink step and the configuration fed to the
// shrinker when the step body runs. For a tested variant the configuration
// is extended in place at graph-construction time.
type ShrinkStep struct {
	Step   *buildgraph.Step
	Config *ShrinkConfiguration
}

// PackagingStep wraps a variant's dex/package step. Inputs is the staged
// archive list the step consumes; Libraries is the separately staged
// resolution-only archive list.
type PackagingStep struct {
	Step          *buildgraph.Step
	Inputs        []string
	Libraries     []string
	BootClasspath Classpath
}

// ReplaceInputs replaces the step's staged input list with exactly the one
// given archive and clears the staged library list. Downstream packaging
// must not double-count classes already folded into a shrunk archive.
func (p *PackagingStep) ReplaceInputs(archive string) {
	p.Inputs = []string{archive}
	p.Libraries = nil
}
