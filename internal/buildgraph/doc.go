// Package buildgraph is the host task-graph surface the augmentation engines
// register into.
//
// It is intentionally split into:
//   - A mutable Builder used during the registration phase: steps, dependency
//     edges, declared inputs and pre/post-execution actions may be added
//     freely until Finalize.
//   - An immutable, validated Graph produced by Finalize: structure is frozen
//     and execution is deterministic and serial.
//
// Augmentation (adding inputs and edges) must complete before Finalize;
// pre/post actions registered on a step fire around that step's body at
// execution time. A failure in any action or in the body fails the step and
// transitively skips its dependents.
package buildgraph
