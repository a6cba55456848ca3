package buildgraph

import (
	"context"
	"errors"
	"testing"
)

func TestRun_DependencyOrder(t *testing.T) {
	b := NewBuilder()
	var log []string
	for _, name := range []string{"package", "shrink", "compile"} {
		s := mustAdd(t, b, name)
		if err := s.SetAction(&recordAction{name: name, log: &log}); err != nil {
			t.Fatalf("set action: %v", err)
		}
	}
	mustEdge(t, b, "compile", "shrink")
	mustEdge(t, b, "shrink", "package")

	g, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	res, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected failure: %v", res.FirstError())
	}

	want := []string{"compile", "shrink", "package"}
	if len(log) != len(want) {
		t.Fatalf("unexpected log: %v", log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, log)
		}
	}
}

func TestRun_PrePostOrdering(t *testing.T) {
	b := NewBuilder()
	var log []string
	s := mustAdd(t, b, "shrink")
	if err := s.AddPreAction(&recordAction{name: "pre1", log: &log}); err != nil {
		t.Fatalf("pre1: %v", err)
	}
	if err := s.AddPreAction(&recordAction{name: "pre2", log: &log}); err != nil {
		t.Fatalf("pre2: %v", err)
	}
	if err := s.SetAction(&recordAction{name: "body", log: &log}); err != nil {
		t.Fatalf("body: %v", err)
	}
	if err := s.AddPostAction(&recordAction{name: "post", log: &log}); err != nil {
		t.Fatalf("post: %v", err)
	}

	g, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := g.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"pre1", "pre2", "body", "post"}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, log)
		}
	}
}

func TestRun_FailurePropagatesToDependents(t *testing.T) {
	b := NewBuilder()
	var log []string
	boom := errors.New("compiler exploded")

	compile := mustAdd(t, b, "compile")
	if err := compile.SetAction(&recordAction{name: "compile", log: &log, err: boom}); err != nil {
		t.Fatalf("set action: %v", err)
	}
	shrink := mustAdd(t, b, "shrink")
	if err := shrink.SetAction(&recordAction{name: "shrink", log: &log}); err != nil {
		t.Fatalf("set action: %v", err)
	}
	other := mustAdd(t, b, "unrelated")
	if err := other.SetAction(&recordAction{name: "unrelated", log: &log}); err != nil {
		t.Fatalf("set action: %v", err)
	}
	mustEdge(t, b, "compile", "shrink")

	g, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	res, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.FinalState["compile"] != StepFailed {
		t.Fatalf("expected compile FAILED, got %s", res.FinalState["compile"])
	}
	if res.FinalState["shrink"] != StepSkipped {
		t.Fatalf("expected shrink SKIPPED, got %s", res.FinalState["shrink"])
	}
	if res.FinalState["unrelated"] != StepCompleted {
		t.Fatalf("expected unrelated COMPLETED, got %s", res.FinalState["unrelated"])
	}

	// The original cause must survive unwrapped inside the step error.
	var stepErr *StepError
	if !errors.As(res.FirstError(), &stepErr) {
		t.Fatalf("expected StepError, got %v", res.FirstError())
	}
	if !errors.Is(stepErr, boom) {
		t.Fatalf("expected original cause preserved, got %v", stepErr)
	}
	if stepErr.Phase != PhaseBody {
		t.Fatalf("expected body phase, got %s", stepErr.Phase)
	}
}

func TestRun_FailingPreActionSkipsBody(t *testing.T) {
	b := NewBuilder()
	var log []string
	s := mustAdd(t, b, "package")
	if err := s.AddPreAction(&recordAction{name: "pre", log: &log, err: errors.New("rewrite failed")}); err != nil {
		t.Fatalf("pre: %v", err)
	}
	if err := s.SetAction(&recordAction{name: "body", log: &log}); err != nil {
		t.Fatalf("body: %v", err)
	}

	g, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	res, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.FinalState["package"] != StepFailed {
		t.Fatalf("expected FAILED, got %s", res.FinalState["package"])
	}
	for _, entry := range log {
		if entry == "body" {
			t.Fatalf("body ran despite failing pre-action: %v", log)
		}
	}

	var stepErr *StepError
	if !errors.As(res.FirstError(), &stepErr) || stepErr.Phase != PhasePre {
		t.Fatalf("expected pre-action phase failure, got %v", res.FirstError())
	}
}

func TestRun_PostActionFailureFailsStep(t *testing.T) {
	b := NewBuilder()
	var log []string
	s := mustAdd(t, b, "shrink")
	if err := s.SetAction(&recordAction{name: "body", log: &log}); err != nil {
		t.Fatalf("body: %v", err)
	}
	if err := s.AddPostAction(&recordAction{name: "post", log: &log, err: errors.New("prune failed")}); err != nil {
		t.Fatalf("post: %v", err)
	}
	dep := mustAdd(t, b, "package")
	if err := dep.SetAction(&recordAction{name: "package", log: &log}); err != nil {
		t.Fatalf("dep body: %v", err)
	}
	mustEdge(t, b, "shrink", "package")

	g, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	res, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.FinalState["shrink"] != StepFailed {
		t.Fatalf("expected shrink FAILED, got %s", res.FinalState["shrink"])
	}
	if res.FinalState["package"] != StepSkipped {
		t.Fatalf("expected package SKIPPED, got %s", res.FinalState["package"])
	}
}
