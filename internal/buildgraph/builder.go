package buildgraph

import "sort"

// Edge represents a dependency relation: To depends on From. To can only run
// after From completes successfully.
type Edge struct {
	From string
	To   string
}

// Builder accumulates steps and edges during the registration phase.
//
// Idempotent creation: EnsureStep is create-if-absent keyed by step name, so
// multiple collaborators requesting the same augmentation never produce
// duplicate wiring.
type Builder struct {
	steps     map[string]*Step
	stepOrder []string

	edges    []Edge
	edgeSeen map[Edge]struct{}

	finalized bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		steps:    make(map[string]*Step),
		edgeSeen: make(map[Edge]struct{}),
	}
}

// AddStep registers a new step. Duplicate names and empty names are rejected.
func (b *Builder) AddStep(name string) (*Step, error) {
	if b.finalized {
		return nil, finalizedf("cannot add step %q", name)
	}
	if name == "" {
		return nil, invalidf("step name is required")
	}
	if _, exists := b.steps[name]; exists {
		return nil, invalidf("duplicate step name: %q", name)
	}
	s := &Step{name: name, builder: b}
	b.steps[name] = s
	b.stepOrder = append(b.stepOrder, name)
	return s, nil
}

// EnsureStep returns the existing step with the given name, creating it if
// absent.
func (b *Builder) EnsureStep(name string) (*Step, error) {
	if s, ok := b.steps[name]; ok {
		return s, nil
	}
	return b.AddStep(name)
}

// Step looks up a step by name.
func (b *Builder) Step(name string) (*Step, bool) {
	s, ok := b.steps[name]
	return s, ok
}

// AddEdge declares that step `to` depends on step `from`. Re-declaring an
// existing edge is a no-op; unknown endpoints and self-loops are rejected.
func (b *Builder) AddEdge(from, to string) error {
	if b.finalized {
		return finalizedf("cannot add edge %q -> %q", from, to)
	}
	if _, ok := b.steps[from]; !ok {
		return invalidf("edge references unknown step (from): %q", from)
	}
	if _, ok := b.steps[to]; !ok {
		return invalidf("edge references unknown step (to): %q", to)
	}
	if from == to {
		return invalidf("self-loop: %q -> %q", from, to)
	}
	e := Edge{From: from, To: to}
	if _, dup := b.edgeSeen[e]; dup {
		return nil
	}
	b.edgeSeen[e] = struct{}{}
	b.edges = append(b.edges, e)
	return nil
}

// Finalize validates the accumulated structure and freezes it into an
// executable Graph. After Finalize, every structural mutator on the builder
// and its steps fails with ErrFinalized.
func (b *Builder) Finalize() (*Graph, error) {
	if b.finalized {
		return nil, finalizedf("finalize called twice")
	}
	if len(b.steps) == 0 {
		return nil, invalidf("no steps")
	}

	nameToIndex := make(map[string]int, len(b.stepOrder))
	nodes := make([]*Step, 0, len(b.stepOrder))
	for i, name := range b.stepOrder {
		nameToIndex[name] = i
		nodes = append(nodes, b.steps[name])
	}

	outgoing := make([][]int, len(nodes))
	incoming := make([][]int, len(nodes))
	for _, e := range b.edges {
		from, to := nameToIndex[e.From], nameToIndex[e.To]
		outgoing[from] = append(outgoing[from], to)
		incoming[to] = append(incoming[to], from)
	}
	for i := range outgoing {
		sort.Ints(outgoing[i])
		sort.Ints(incoming[i])
	}

	g := &Graph{
		nodes:       nodes,
		nodesByName: b.steps,
		outgoing:    outgoing,
		incoming:    incoming,
	}
	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}
	g.depth = g.computeDepth()

	b.finalized = true
	return g, nil
}

func (g *Graph) validateAcyclic() error {
	const (
		white = 0 // unvisited
		grey  = 1 // on stack
		black = 2 // done
	)
	color := make([]int, len(g.nodes))
	var stack []string

	var visit func(u int) error
	visit = func(u int) error {
		color[u] = grey
		stack = append(stack, g.nodes[u].name)
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				if err := visit(v); err != nil {
					return err
				}
			case grey:
				return cycleError(append(append([]string(nil), stack...), g.nodes[v].name))
			}
		}
		stack = stack[:len(stack)-1]
		color[u] = black
		return nil
	}

	for u := range g.nodes {
		if color[u] == white {
			if err := visit(u); err != nil {
				return err
			}
		}
	}
	return nil
}
