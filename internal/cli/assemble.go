package cli

import (
	"fmt"
	"path/filepath"

	"dexweave/internal/archive"
	"dexweave/internal/buildgraph"
	"dexweave/internal/config"
	"dexweave/internal/jointc"
	"dexweave/internal/shrink"
	"dexweave/internal/variant"
)

// Assembly is the outcome of the registration phase: the mutable builder
// with every step, edge and action wired, plus handles for inspecting what
// was wired. Finalize the builder to run.
type Assembly struct {
	Builder      *buildgraph.Builder
	Variants     map[string]*variant.BuildVariant
	Orchestrator *jointc.Orchestrator
	Dedups       map[string]*archive.Deduplicator
	OutputDir    string

	workDir string
}

// Assemble turns a validated build description into a wired build graph.
//
// Registration order per variant: steps and edges first, then the
// joint-compile wrap, then for test variants the shrink extension, the
// deduplicator bracket and the packaging rewrite. Everything happens before
// the graph is finalized.
func Assemble(cfg *config.Build, workDir string, tc *Toolchain) (*Assembly, error) {
	outDir := resolvePath(workDir, cfg.OutputDir)

	asm := &Assembly{
		Builder:      buildgraph.NewBuilder(),
		Variants:     make(map[string]*variant.BuildVariant, len(cfg.Variants)),
		Orchestrator: jointc.NewOrchestrator(tc.Detector, tc.Primary, tc.Secondary),
		Dedups:       make(map[string]*archive.Deduplicator),
		OutputDir:    outDir,
		workDir:      workDir,
	}

	// Non-test variants first so test variants can reference them.
	for i := range cfg.Variants {
		if cfg.Variants[i].Tests != "" {
			continue
		}
		if err := asm.addVariant(&cfg.Variants[i], cfg, workDir, tc); err != nil {
			return nil, err
		}
	}
	for i := range cfg.Variants {
		v := &cfg.Variants[i]
		if v.Tests == "" {
			continue
		}
		if err := asm.addVariant(v, cfg, workDir, tc); err != nil {
			return nil, err
		}
		if err := asm.augmentTestVariant(v, tc); err != nil {
			return nil, err
		}
	}
	return asm, nil
}

func (a *Assembly) addVariant(vc *config.Variant, cfg *config.Build, workDir string, tc *Toolchain) error {
	b := a.Builder
	variantOut := filepath.Join(a.OutputDir, vc.Name)

	compileStep, err := b.AddStep("compile" + title(vc.Name))
	if err != nil {
		return err
	}

	v := &variant.BuildVariant{
		Name:    vc.Name,
		Package: vc.Package,
		Compile: &variant.CompileStep{
			Step:       compileStep,
			SourceDirs: resolvePaths(workDir, vc.SourceDirs),
			Classpath:  variant.Classpath(resolvePaths(workDir, vc.Classpath)),
			DestDir:    filepath.Join(variantOut, "classes"),
		},
	}
	if err := compileStep.SetAction(&compileAction{
		taskID:     compileStep.Name(),
		sourceDirs: v.Compile.SourceDirs,
		classpath:  v.Compile.Classpath,
		destDir:    v.Compile.DestDir,
		ext:        a.Orchestrator.PrimaryExt,
		compiler:   tc.Primary,
	}); err != nil {
		return err
	}
	for _, dir := range v.Compile.SourceDirs {
		if err := compileStep.AddInput(dir); err != nil {
			return err
		}
	}
	if err := compileStep.AddOutput(v.Compile.DestDir); err != nil {
		return err
	}

	packagingUpstream := compileStep.Name()
	packagingSeed := v.Compile.DestDir

	if vc.Shrink {
		shrinkStep, err := b.AddStep("shrink" + title(vc.Name))
		if err != nil {
			return err
		}
		shrinkCfg := variant.NewShrinkConfiguration(filepath.Join(variantOut, vc.Name+"-shrunk.jar"))
		shrinkCfg.AddInput(v.Compile.DestDir)
		for _, lib := range v.Compile.Classpath {
			shrinkCfg.AddLibrary(lib)
		}
		for _, boot := range resolvePaths(workDir, cfg.BootClasspath) {
			shrinkCfg.AddLibrary(boot)
		}
		rules := shrink.DefaultRules()
		if vc.ShrinkRulesFile != "" {
			rules, err = shrink.LoadOverride(resolvePath(workDir, vc.ShrinkRulesFile))
			if err != nil {
				return err
			}
		}
		shrinkCfg.SetRules(rules)

		if err := shrinkStep.SetAction(&shrinkAction{
			taskID:   shrinkStep.Name(),
			shrinker: tc.Shrinker,
			cfg:      shrinkCfg,
		}); err != nil {
			return err
		}
		if err := shrinkStep.AddInput(v.Compile.DestDir); err != nil {
			return err
		}
		if err := shrinkStep.AddOutput(shrinkCfg.OutputArchive()); err != nil {
			return err
		}
		if err := b.AddEdge(compileStep.Name(), shrinkStep.Name()); err != nil {
			return err
		}

		v.Shrink = &variant.ShrinkStep{Step: shrinkStep, Config: shrinkCfg}
		packagingUpstream = shrinkStep.Name()
		packagingSeed = shrinkCfg.OutputArchive()
	}

	packageStep, err := b.AddStep("package" + title(vc.Name))
	if err != nil {
		return err
	}
	v.Packaging = &variant.PackagingStep{
		Step:          packageStep,
		Inputs:        append([]string{packagingSeed}, resolvePaths(workDir, vc.StagedInputs)...),
		Libraries:     resolvePaths(workDir, vc.StagedLibraries),
		BootClasspath: variant.Classpath(resolvePaths(workDir, cfg.BootClasspath)),
	}
	if err := packageStep.SetAction(&packageAction{
		taskID:    packageStep.Name(),
		packaging: v.Packaging,
		outPath:   filepath.Join(variantOut, vc.Name+containerSuffix(vc.Mode())),
	}); err != nil {
		return err
	}
	if err := b.AddEdge(packagingUpstream, packageStep.Name()); err != nil {
		return err
	}

	// Joint compilation hinges on what the variant's own classpath carries.
	if err := a.Orchestrator.Wrap(v.Compile); err != nil {
		return err
	}

	a.Variants[vc.Name] = v
	return nil
}

// augmentTestVariant wires the three test-specific mechanisms: the tested
// variant's shrink extension, the dedup bracket around that shrink step, and
// the packaging input rewrite.
func (a *Assembly) augmentTestVariant(vc *config.Variant, tc *Toolchain) error {
	v := a.Variants[vc.Name]
	tested, ok := a.Variants[vc.Tests]
	if !ok {
		return fmt.Errorf("variant %q tests unknown variant %q", vc.Name, vc.Tests)
	}
	v.Tested = tested

	// Test sources compile against the tested variant's output.
	if err := a.Builder.AddEdge(tested.Compile.Step.Name(), v.Compile.Step.Name()); err != nil {
		return err
	}

	if err := (shrink.Coordinator{}).Extend(a.Builder, v); err != nil {
		return err
	}

	if tested.Shrink != nil {
		dedup := &archive.Deduplicator{
			TestClassesDir: v.Compile.DestDir,
			Archives:       []string{tested.Shrink.Config.OutputArchive()},
		}
		if err := tested.Shrink.Step.AddPreAction(dedup.RecordAction()); err != nil {
			return err
		}
		if err := tested.Shrink.Step.AddPostAction(dedup.PruneAction()); err != nil {
			return err
		}
		a.Dedups[vc.Name] = dedup

		// The test compile must exist before the record walk fires.
		if err := a.Builder.AddEdge(v.Compile.Step.Name(), tested.Shrink.Step.Name()); err != nil {
			return err
		}
	}

	override := ""
	if vc.ShrinkRulesFile != "" {
		override = resolvePath(a.workDir, vc.ShrinkRulesFile)
	}
	rewriter := &shrink.Rewriter{
		Shrinker:          tc.Shrinker,
		OutputDir:         filepath.Join(a.OutputDir, vc.Name),
		RulesOverridePath: override,
	}
	if _, err := rewriter.Rewrite(v); err != nil {
		return err
	}
	return nil
}

func containerSuffix(mode config.PackagingMode) string {
	if mode == config.PackagingJar {
		return ".jar"
	}
	return ".apk"
}

func title(name string) string {
	if name == "" {
		return ""
	}
	if name[0] >= 'a' && name[0] <= 'z' {
		return string(name[0]-('a'-'A')) + name[1:]
	}
	return name
}

func resolvePath(workDir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(workDir, p))
}

func resolvePaths(workDir string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, resolvePath(workDir, p))
	}
	return out
}
