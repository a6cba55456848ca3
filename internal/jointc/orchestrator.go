package jointc

import (
	"context"
	"fmt"
	"os"
	"sort"

	"dexweave/internal/variant"
)

const (
	// DefaultCompilerCoordinate is the dependency coordinate prefix pinned
	// into a decorated task's bucket; the detected version completes it.
	DefaultCompilerCoordinate = "secondary-compiler"

	defaultPrimaryExt   = ".java"
	defaultSecondaryExt = ".groovy"
)

// Detector resolves the secondary runtime version present on a classpath.
// Absence is reported via found=false, not an error.
type Detector interface {
	Detect(cp variant.Classpath) (version string, found bool, err error)
}

// DependencyBucket is the per-task set of pinned compiler coordinates.
// Buckets are created lazily, exactly once per task identity, and live only
// for the current build invocation.
type DependencyBucket struct {
	taskID string
	coords []string
	seen   map[string]struct{}
}

// Require pins a dependency coordinate. Re-requiring is a no-op.
func (b *DependencyBucket) Require(coordinate string) {
	if _, dup := b.seen[coordinate]; dup {
		return
	}
	b.seen[coordinate] = struct{}{}
	b.coords = append(b.coords, coordinate)
}

// Coordinates returns the pinned coordinates in request order.
func (b *DependencyBucket) Coordinates() []string {
	return append([]string(nil), b.coords...)
}

// TaskID returns the owning task's identity.
func (b *DependencyBucket) TaskID() string { return b.taskID }

// Orchestrator wraps compile steps for joint compilation.
//
// Wrap is idempotent per step: a step is decorated at most once, and
// introspection runs once per step's classpath. No state survives across
// build invocations; construct one orchestrator per run.
type Orchestrator struct {
	detector  Detector
	primary   Compiler
	secondary Compiler

	// PrimaryExt and SecondaryExt select the language partition by file
	// suffix.
	PrimaryExt   string
	SecondaryExt string

	// Coordinate is the dependency coordinate prefix for the pinned
	// secondary compiler.
	Coordinate string

	buckets map[string]*DependencyBucket
	wrapped map[string]struct{}
}

// NewOrchestrator creates an orchestrator with default language extensions.
func NewOrchestrator(detector Detector, primary, secondary Compiler) *Orchestrator {
	return &Orchestrator{
		detector:     detector,
		primary:      primary,
		secondary:    secondary,
		PrimaryExt:   defaultPrimaryExt,
		SecondaryExt: defaultSecondaryExt,
		Coordinate:   DefaultCompilerCoordinate,
		buckets:      make(map[string]*DependencyBucket),
		wrapped:      make(map[string]struct{}),
	}
}

// Wrap inspects the compile step's classpath and, if the secondary runtime
// is present, pins the matching compiler version into the step's dependency
// bucket and replaces the step's action with the joint-compile decorator.
//
// If the runtime is absent the step is left untouched. Re-invoking Wrap on
// an already-processed step is a no-op.
func (o *Orchestrator) Wrap(cs *variant.CompileStep) error {
	if cs == nil || cs.Step == nil {
		return fmt.Errorf("nil compile step")
	}
	taskID := cs.Step.Name()
	if _, done := o.wrapped[taskID]; done {
		return nil
	}

	version, found, err := o.detector.Detect(cs.Classpath)
	if err != nil {
		return fmt.Errorf("introspecting classpath of %q: %w", taskID, err)
	}
	o.wrapped[taskID] = struct{}{}
	if !found {
		return nil
	}

	bucket := o.bucketFor(taskID)
	bucket.Require(o.Coordinate + ":" + version)

	action := &jointCompileAction{
		taskID:       taskID,
		sourceDirs:   append([]string(nil), cs.SourceDirs...),
		classpath:    append(variant.Classpath(nil), cs.Classpath...),
		destDir:      cs.DestDir,
		primaryExt:   o.PrimaryExt,
		secondaryExt: o.SecondaryExt,
		primary:      o.primary,
		secondary:    o.secondary,
	}
	if err := cs.Step.SetAction(action); err != nil {
		return fmt.Errorf("decorating %q: %w", taskID, err)
	}
	return nil
}

// Bucket returns the dependency bucket for the given task identity, if one
// was created.
func (o *Orchestrator) Bucket(taskID string) (*DependencyBucket, bool) {
	b, ok := o.buckets[taskID]
	return b, ok
}

// Buckets returns all created buckets ordered by task identity.
func (o *Orchestrator) Buckets() []*DependencyBucket {
	ids := make([]string, 0, len(o.buckets))
	for id := range o.buckets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*DependencyBucket, 0, len(ids))
	for _, id := range ids {
		out = append(out, o.buckets[id])
	}
	return out
}

func (o *Orchestrator) bucketFor(taskID string) *DependencyBucket {
	if b, ok := o.buckets[taskID]; ok {
		return b
	}
	b := &DependencyBucket{taskID: taskID, seen: make(map[string]struct{})}
	o.buckets[taskID] = b
	return b
}

// jointCompileAction is the decorator installed as a wrapped step's body.
// All state is carried explicitly in fields.
//
// The invocation sequence is fixed and one-directional: the secondary
// compiler runs first over its partition with the plain classpath, then the
// primary compiler runs with the classpath extended by the shared
// destination directory so primary sources may resolve symbols the secondary
// pass just produced. Secondary sources can never see primary-only symbols.
type jointCompileAction struct {
	taskID       string
	sourceDirs   []string
	classpath    variant.Classpath
	destDir      string
	primaryExt   string
	secondaryExt string
	primary      Compiler
	secondary    Compiler
}

func (a *jointCompileAction) Name() string {
	return "joint-compile:" + a.taskID
}

func (a *jointCompileAction) Run(ctx context.Context) error {
	primarySources, secondarySources, err := partition(a.sourceDirs, a.primaryExt, a.secondaryExt)
	if err != nil {
		return fmt.Errorf("partitioning sources of %q: %w", a.taskID, err)
	}
	if err := os.MkdirAll(a.destDir, 0o755); err != nil {
		return fmt.Errorf("creating destination of %q: %w", a.taskID, err)
	}

	if len(secondarySources) > 0 {
		if err := a.secondary.Compile(ctx, CompileRequest{
			Sources:   secondarySources,
			Classpath: a.classpath,
			DestDir:   a.destDir,
		}); err != nil {
			return err
		}
	}

	if len(primarySources) > 0 {
		if err := a.primary.Compile(ctx, CompileRequest{
			Sources:   primarySources,
			Classpath: a.classpath.Append(a.destDir),
			DestDir:   a.destDir,
		}); err != nil {
			return err
		}
	}
	return nil
}
