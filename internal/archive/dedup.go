package archive

import (
	"context"
	"fmt"

	"dexweave/internal/variant"
)

// Deduplicator bridges a tested variant's shrink step: its record action
// fires before the step body and its prune action after it. The recorded key
// set lives only inside this object and only for the current run.
//
// The shrinker legitimately retains test-only classes to satisfy the
// combined reachability closure; the shipped artifact must still contain
// only the app's own classes, so everything recorded from the test output
// tree is cut back out of the shrunk archives by exact path.
type Deduplicator struct {
	// TestClassesDir is the test variant's compiled-output directory.
	TestClassesDir string

	// Archives are the shrink step's output archives to prune.
	Archives []string

	recorded []variant.EntryKey
	result   *PruneResult
}

// Recorded returns the keys captured by the record action, in sorted order.
func (d *Deduplicator) Recorded() []variant.EntryKey {
	return append([]variant.EntryKey(nil), d.recorded...)
}

// Result returns the outcome of the prune action, nil until it has run.
func (d *Deduplicator) Result() *PruneResult { return d.result }

// RecordAction returns the pre-execution action that walks the test output
// directory.
func (d *Deduplicator) RecordAction() *recordAction { return &recordAction{dedup: d} }

// PruneAction returns the post-execution action that removes recorded
// entries from the shrunk archives.
func (d *Deduplicator) PruneAction() *pruneAction { return &pruneAction{dedup: d} }

type recordAction struct {
	dedup *Deduplicator
}

func (a *recordAction) Name() string { return "record-test-classes" }

func (a *recordAction) Run(ctx context.Context) error {
	keys, err := RecordClassFiles(a.dedup.TestClassesDir)
	if err != nil {
		return err
	}
	a.dedup.recorded = keys
	return nil
}

type pruneAction struct {
	dedup *Deduplicator
}

func (a *pruneAction) Name() string { return "prune-test-classes" }

func (a *pruneAction) Run(ctx context.Context) error {
	result, err := Prune(a.dedup.Archives, a.dedup.recorded)
	if err != nil {
		return fmt.Errorf("deduplicating shrunk archives: %w", err)
	}
	a.dedup.result = result
	return nil
}
