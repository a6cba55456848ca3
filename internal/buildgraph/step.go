package buildgraph

import "context"

// Action is an explicit callback attached to a step. Implementations carry
// all the state they need as fields; nothing is implicitly closed over the
// scheduler's internals.
type Action interface {
	// Name identifies the action in step failure reports.
	Name() string

	// Run executes the action. A non-nil error fails the owning step.
	Run(ctx context.Context) error
}

// Step is one node of the build graph. During the registration phase its
// action, hooks and declared inputs may be changed; after the owning builder
// finalizes, all mutators fail with ErrFinalized.
type Step struct {
	name    string
	builder *Builder

	action Action
	pre    []Action
	post   []Action

	inputs  []string
	outputs []string
}

// Name returns the step's unique name, which is also its task identity.
func (s *Step) Name() string { return s.name }

// Action returns the step's current body action, which may be nil for pure
// synchronization steps.
func (s *Step) Action() Action { return s.action }

// SetAction replaces the step's body action.
func (s *Step) SetAction(a Action) error {
	if s.builder.finalized {
		return finalizedf("cannot set action on %q", s.name)
	}
	s.action = a
	return nil
}

// AddPreAction appends an action that runs before the step body.
// Pre-actions run in registration order.
func (s *Step) AddPreAction(a Action) error {
	if s.builder.finalized {
		return finalizedf("cannot add pre-action on %q", s.name)
	}
	s.pre = append(s.pre, a)
	return nil
}

// AddPostAction appends an action that runs after the step body succeeds.
// Post-actions run in registration order.
func (s *Step) AddPostAction(a Action) error {
	if s.builder.finalized {
		return finalizedf("cannot add post-action on %q", s.name)
	}
	s.post = append(s.post, a)
	return nil
}

// AddInput declares an input path for the step.
func (s *Step) AddInput(path string) error {
	if s.builder.finalized {
		return finalizedf("cannot add input on %q", s.name)
	}
	s.inputs = append(s.inputs, path)
	return nil
}

// AddOutput declares an output path for the step.
func (s *Step) AddOutput(path string) error {
	if s.builder.finalized {
		return finalizedf("cannot add output on %q", s.name)
	}
	s.outputs = append(s.outputs, path)
	return nil
}

// Inputs returns the declared input paths in registration order.
func (s *Step) Inputs() []string { return append([]string(nil), s.inputs...) }

// Outputs returns the declared output paths in registration order.
func (s *Step) Outputs() []string { return append([]string(nil), s.outputs...) }
