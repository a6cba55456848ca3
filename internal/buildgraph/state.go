package buildgraph

import (
	"fmt"
	"sort"
)

// StepState is the runtime execution state of a step. It is kept separate
// from the frozen Graph so the same graph could be executed repeatedly.
type StepState string

const (
	StepPending   StepState = "PENDING"
	StepRunning   StepState = "RUNNING"
	StepCompleted StepState = "COMPLETED"
	StepFailed    StepState = "FAILED"
	StepSkipped   StepState = "SKIPPED"
)

// ExecutionState maps step name to its current StepState.
//
// It is a plain map so the readiness computation can remain a pure function.
type ExecutionState map[string]StepState

// IsTerminal reports whether the state is terminal.
func IsTerminal(s StepState) bool {
	switch s {
	case StepCompleted, StepFailed, StepSkipped:
		return true
	default:
		return false
	}
}

// transition performs a validated state change, with the expected prior
// state supplied so inconsistencies are observable.
func transition(state ExecutionState, stepName string, from, to StepState) error {
	cur, ok := state[stepName]
	if !ok {
		return fmt.Errorf("unknown step in state: %q", stepName)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", stepName, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", stepName, from, to)
	}
	state[stepName] = to
	return nil
}

func isAllowedTransition(from, to StepState) bool {
	switch from {
	case StepPending:
		return to == StepRunning || to == StepSkipped
	case StepRunning:
		return to == StepCompleted || to == StepFailed
	default:
		return false
	}
}

// readySteps returns the deterministically ordered list of step names that
// are eligible to run: PENDING with all dependencies COMPLETED. The list is
// sorted by (topological depth asc, step name asc).
func readySteps(g *Graph, state ExecutionState) []string {
	if g == nil {
		return nil
	}

	ready := make([]string, 0)
	for idx, node := range g.nodes {
		st, ok := state[node.name]
		if !ok || st != StepPending {
			continue
		}
		depsOK := true
		for _, parentIdx := range g.incoming[idx] {
			if state[g.nodes[parentIdx].name] != StepCompleted {
				depsOK = false
				break
			}
		}
		if depsOK {
			ready = append(ready, node.name)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		ad, bd := g.depthOf(a), g.depthOf(b)
		if ad != bd {
			return ad < bd
		}
		return a < b
	})
	return ready
}

// failAndPropagate marks stepName FAILED and transitively marks all
// downstream dependents SKIPPED. Traversal order is deterministic.
func failAndPropagate(g *Graph, state ExecutionState, stepName string) error {
	start, ok := g.indexOf(stepName)
	if !ok {
		return fmt.Errorf("unknown step: %q", stepName)
	}
	if err := transition(state, stepName, StepRunning, StepFailed); err != nil {
		return err
	}

	visited := make([]bool, len(g.nodes))
	visited[start] = true
	frontier := append([]int(nil), g.outgoing[start]...)

	for len(frontier) > 0 {
		sort.Ints(frontier)
		u := frontier[0]
		frontier = frontier[1:]
		if visited[u] {
			continue
		}
		visited[u] = true

		name := g.nodes[u].name
		switch state[name] {
		case StepPending:
			state[name] = StepSkipped
		case StepRunning:
			return fmt.Errorf("invariant violation: downstream step %q is RUNNING during failure propagation", name)
		}

		for _, v := range g.outgoing[u] {
			if !visited[v] {
				frontier = append(frontier, v)
			}
		}
	}
	return nil
}
