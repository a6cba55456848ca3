// Package shrink wires variants into keep-rule-driven shrink passes.
//
// Two mechanisms live here. The coordinator extends a tested variant's
// shrink step with the test variant's compiled output and classpath so the
// reachability closure sees classes only tests reach. The rewriter builds a
// dedicated shrink pass scoped to a test variant and replaces the packaging
// step's inputs with the single archive that pass produces.
package shrink
