package buildgraph

import (
	"context"
	"fmt"
)

// Graph is a frozen, validated build graph. Structure is immutable; only
// execution state changes during Run.
type Graph struct {
	nodes       []*Step
	nodesByName map[string]*Step

	outgoing [][]int // by insertion index, sorted ascending
	incoming [][]int // by insertion index, sorted ascending
	depth    []int   // topological depth by insertion index
}

// Result is the deterministic summary of one graph execution.
type Result struct {
	// FinalState is the terminal state of each step by name.
	FinalState ExecutionState

	// ExecutionOrder is the ordered list of steps that started running.
	ExecutionOrder []string

	// StepErrors records the failure cause per failed step, unmodified.
	StepErrors map[string]error
}

// Failed reports whether any step failed or was skipped.
func (r *Result) Failed() bool {
	for _, st := range r.FinalState {
		if st == StepFailed || st == StepSkipped {
			return true
		}
	}
	return false
}

// FirstError returns the failure of the earliest-started failed step, or nil.
func (r *Result) FirstError() error {
	for _, name := range r.ExecutionOrder {
		if err, ok := r.StepErrors[name]; ok {
			return err
		}
	}
	return nil
}

// Step looks up a step by name.
func (g *Graph) Step(name string) (*Step, bool) {
	s, ok := g.nodesByName[name]
	return s, ok
}

func (g *Graph) indexOf(name string) (int, bool) {
	for i, n := range g.nodes {
		if n.name == name {
			return i, true
		}
	}
	return 0, false
}

func (g *Graph) depthOf(name string) int {
	if idx, ok := g.indexOf(name); ok {
		return g.depth[idx]
	}
	return 0
}

func (g *Graph) computeDepth() []int {
	depth := make([]int, len(g.nodes))
	order := g.topoOrderIndices()
	for _, u := range order {
		maxParent := 0
		for _, p := range g.incoming[u] {
			if cand := depth[p] + 1; cand > maxParent {
				maxParent = cand
			}
		}
		depth[u] = maxParent
	}
	return depth
}

func (g *Graph) topoOrderIndices() []int {
	indeg := make([]int, len(g.nodes))
	for u := range g.nodes {
		indeg[u] = len(g.incoming[u])
	}

	order := make([]int, 0, len(g.nodes))
	frontier := make([]int, 0)
	for u := range g.nodes {
		if indeg[u] == 0 {
			frontier = append(frontier, u)
		}
	}
	for len(frontier) > 0 {
		u := frontier[0]
		frontier = frontier[1:]
		order = append(order, u)
		for _, v := range g.outgoing[u] {
			indeg[v]--
			if indeg[v] == 0 {
				frontier = append(frontier, v)
			}
		}
	}
	return order
}

// Run executes the graph serially, one step body at a time.
//
// Per step, the sequence is: pre-actions in registration order, the body
// action, then post-actions in registration order. The first non-nil error
// fails the step; remaining actions of that step do not run and dependents
// are skipped. The failure cause is recorded unmodified in Result.StepErrors.
//
// Run returns a non-nil error only for internal inconsistencies; step
// failures are reported through the Result.
func (g *Graph) Run(ctx context.Context) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	state := make(ExecutionState, len(g.nodes))
	for _, n := range g.nodes {
		state[n.name] = StepPending
	}

	order := make([]string, 0, len(g.nodes))
	stepErrors := make(map[string]error)

	for {
		ready := readySteps(g, state)
		if len(ready) == 0 {
			allTerminal := true
			for _, st := range state {
				if !IsTerminal(st) {
					allTerminal = false
					break
				}
			}
			if !allTerminal {
				return nil, fmt.Errorf("no ready steps but graph not finished")
			}
			return &Result{FinalState: state, ExecutionOrder: order, StepErrors: stepErrors}, nil
		}

		next := ready[0]
		step := g.nodesByName[next]
		if err := transition(state, next, StepPending, StepRunning); err != nil {
			return nil, err
		}
		order = append(order, next)

		if err := runStep(ctx, step); err != nil {
			stepErrors[next] = err
			if perr := failAndPropagate(g, state, next); perr != nil {
				return nil, perr
			}
			continue
		}
		if err := transition(state, next, StepRunning, StepCompleted); err != nil {
			return nil, err
		}
	}
}

func runStep(ctx context.Context, step *Step) error {
	for _, a := range step.pre {
		if err := a.Run(ctx); err != nil {
			return &StepError{Step: step.name, Phase: PhasePre, Cause: err}
		}
	}
	if step.action != nil {
		if err := step.action.Run(ctx); err != nil {
			return &StepError{Step: step.name, Phase: PhaseBody, Cause: err}
		}
	}
	for _, a := range step.post {
		if err := a.Run(ctx); err != nil {
			return &StepError{Step: step.name, Phase: PhasePost, Cause: err}
		}
	}
	return nil
}
