package jointc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dexweave/internal/buildgraph"
	"dexweave/internal/variant"
)

type fakeDetector struct {
	version string
	found   bool
	err     error
	calls   int
}

func (d *fakeDetector) Detect(cp variant.Classpath) (string, bool, error) {
	d.calls++
	return d.version, d.found, d.err
}

type fakeCompiler struct {
	role     string
	log      *[]CompileRequest
	roles    *[]string
	failWith error
}

func (c *fakeCompiler) Compile(ctx context.Context, req CompileRequest) error {
	*c.log = append(*c.log, req)
	*c.roles = append(*c.roles, c.role)
	return c.failWith
}

type noopAction struct{}

func (noopAction) Name() string                  { return "noop" }
func (noopAction) Run(ctx context.Context) error { return nil }

func newCompileStep(t *testing.T, sourceDirs []string, cp variant.Classpath, destDir string) *variant.CompileStep {
	t.Helper()
	b := buildgraph.NewBuilder()
	step, err := b.AddStep("compileDebug")
	if err != nil {
		t.Fatalf("add step: %v", err)
	}
	if err := step.SetAction(noopAction{}); err != nil {
		t.Fatalf("set action: %v", err)
	}
	return &variant.CompileStep{Step: step, SourceDirs: sourceDirs, Classpath: cp, DestDir: destDir}
}

func writeSources(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func TestWrap_AbsentRuntimeLeavesStepUntouched(t *testing.T) {
	var log []CompileRequest
	var roles []string
	cs := newCompileStep(t, nil, variant.Classpath{"/libs/plain.jar"}, "/out")
	original := cs.Step.Action()

	o := NewOrchestrator(&fakeDetector{found: false},
		&fakeCompiler{role: "primary", log: &log, roles: &roles},
		&fakeCompiler{role: "secondary", log: &log, roles: &roles})
	if err := o.Wrap(cs); err != nil {
		t.Fatalf("wrap: %v", err)
	}

	if cs.Step.Action() != original {
		t.Fatalf("action replaced despite absent runtime")
	}
	if _, ok := o.Bucket("compileDebug"); ok {
		t.Fatalf("bucket created despite absent runtime")
	}
}

func TestWrap_PinsDetectedCompilerVersion(t *testing.T) {
	var log []CompileRequest
	var roles []string
	cs := newCompileStep(t, nil, variant.Classpath{"/libs/runtime.jar"}, "/out")

	o := NewOrchestrator(&fakeDetector{version: "4.0.21", found: true},
		&fakeCompiler{role: "primary", log: &log, roles: &roles},
		&fakeCompiler{role: "secondary", log: &log, roles: &roles})
	if err := o.Wrap(cs); err != nil {
		t.Fatalf("wrap: %v", err)
	}

	bucket, ok := o.Bucket("compileDebug")
	if !ok {
		t.Fatalf("expected bucket for compileDebug")
	}
	coords := bucket.Coordinates()
	if len(coords) != 1 || coords[0] != "secondary-compiler:4.0.21" {
		t.Fatalf("unexpected coordinates: %v", coords)
	}
	if _, isJoint := cs.Step.Action().(*jointCompileAction); !isJoint {
		t.Fatalf("expected decorated action, got %T", cs.Step.Action())
	}
}

func TestWrap_IsIdempotent(t *testing.T) {
	var log []CompileRequest
	var roles []string
	cs := newCompileStep(t, nil, variant.Classpath{"/libs/runtime.jar"}, "/out")

	det := &fakeDetector{version: "4.0.21", found: true}
	o := NewOrchestrator(det,
		&fakeCompiler{role: "primary", log: &log, roles: &roles},
		&fakeCompiler{role: "secondary", log: &log, roles: &roles})
	if err := o.Wrap(cs); err != nil {
		t.Fatalf("first wrap: %v", err)
	}
	decorated := cs.Step.Action()
	if err := o.Wrap(cs); err != nil {
		t.Fatalf("second wrap: %v", err)
	}

	if det.calls != 1 {
		t.Fatalf("introspection ran %d times, expected once per step", det.calls)
	}
	if cs.Step.Action() != decorated {
		t.Fatalf("step decorated twice")
	}
	bucket, _ := o.Bucket("compileDebug")
	if len(bucket.Coordinates()) != 1 {
		t.Fatalf("duplicate coordinates: %v", bucket.Coordinates())
	}
}

func TestJointAction_SecondaryRunsFirstWithSharedDest(t *testing.T) {
	srcDir := writeSources(t, map[string]string{
		"com/app/Main.java":    "class Main {}",
		"com/app/Helper.groovy": "class Helper {}",
		"com/app/notes.txt":    "ignored",
	})
	destDir := t.TempDir()

	var log []CompileRequest
	var roles []string
	cs := newCompileStep(t, []string{srcDir}, variant.Classpath{"/libs/runtime.jar"}, destDir)

	o := NewOrchestrator(&fakeDetector{version: "4.0.21", found: true},
		&fakeCompiler{role: "primary", log: &log, roles: &roles},
		&fakeCompiler{role: "secondary", log: &log, roles: &roles})
	if err := o.Wrap(cs); err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if err := cs.Step.Action().Run(context.Background()); err != nil {
		t.Fatalf("joint compile: %v", err)
	}

	if len(roles) != 2 || roles[0] != "secondary" || roles[1] != "primary" {
		t.Fatalf("expected secondary then primary, got %v", roles)
	}

	secondaryReq, primaryReq := log[0], log[1]
	if len(secondaryReq.Sources) != 1 || filepath.Base(secondaryReq.Sources[0]) != "Helper.groovy" {
		t.Fatalf("unexpected secondary partition: %v", secondaryReq.Sources)
	}
	if len(primaryReq.Sources) != 1 || filepath.Base(primaryReq.Sources[0]) != "Main.java" {
		t.Fatalf("unexpected primary partition: %v", primaryReq.Sources)
	}
	if secondaryReq.DestDir != destDir || primaryReq.DestDir != destDir {
		t.Fatalf("compilers must share the destination directory")
	}

	// The primary pass resolves symbols the secondary pass just produced.
	if primaryReq.Classpath[len(primaryReq.Classpath)-1] != destDir {
		t.Fatalf("primary classpath missing destination dir: %v", primaryReq.Classpath)
	}
	for _, p := range secondaryReq.Classpath {
		if p == destDir {
			t.Fatalf("secondary classpath must not include destination dir: %v", secondaryReq.Classpath)
		}
	}
}

func TestJointAction_SecondaryFailureAbortsBeforePrimary(t *testing.T) {
	srcDir := writeSources(t, map[string]string{
		"A.java":   "class A {}",
		"B.groovy": "class B {}",
	})

	diag := []byte("B.groovy: 1: unable to resolve class OnlyInJava\n")
	var log []CompileRequest
	var roles []string
	cs := newCompileStep(t, []string{srcDir}, nil, t.TempDir())

	o := NewOrchestrator(&fakeDetector{version: "4.0.21", found: true},
		&fakeCompiler{role: "primary", log: &log, roles: &roles},
		&fakeCompiler{role: "secondary", log: &log, roles: &roles,
			failWith: &CompilerError{Compiler: "secondary", ExitCode: 1, Diagnostics: diag}})
	if err := o.Wrap(cs); err != nil {
		t.Fatalf("wrap: %v", err)
	}

	err := cs.Step.Action().Run(context.Background())
	if !errors.Is(err, ErrSubCompiler) {
		t.Fatalf("expected ErrSubCompiler, got %v", err)
	}
	var cerr *CompilerError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CompilerError, got %v", err)
	}
	if string(cerr.Diagnostics) != string(diag) {
		t.Fatalf("diagnostics not verbatim: %q", cerr.Diagnostics)
	}
	for _, r := range roles {
		if r == "primary" {
			t.Fatalf("primary compiler ran after secondary failure: %v", roles)
		}
	}
}

func TestPartition_SortsDeterministically(t *testing.T) {
	srcDir := writeSources(t, map[string]string{
		"z/Z.java":   "z",
		"a/A.java":   "a",
		"m/M.groovy": "m",
	})
	primary, secondary, err := partition([]string{srcDir}, ".java", ".groovy")
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if len(primary) != 2 || filepath.Base(primary[0]) != "A.java" || filepath.Base(primary[1]) != "Z.java" {
		t.Fatalf("primary partition unsorted: %v", primary)
	}
	if len(secondary) != 1 {
		t.Fatalf("secondary partition: %v", secondary)
	}
}
