package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"dexweave/internal/buildgraph"
	"dexweave/internal/config"
	"dexweave/internal/shrink"
)

// CLIResult is the semantic outcome of one run.
type CLIResult struct {
	ExitCode int
	Result   *buildgraph.Result
}

// Run is the high-level entrypoint suitable for black-box tests. It accepts
// the argument slice (excluding argv[0]) and returns the semantic exit code
// plus any error.
func Run(ctx context.Context, args []string) (CLIResult, error) {
	inv, err := ParseInvocation(args)
	if err != nil {
		return CLIResult{ExitCode: ExitCodeOf(err)}, err
	}
	return Execute(ctx, inv)
}

// Execute loads the build description, assembles and finalizes the graph,
// and runs it. Failure causes are reported with the original diagnostic
// intact; exit codes classify them.
func Execute(ctx context.Context, inv Invocation) (CLIResult, error) {
	data, err := os.ReadFile(inv.ConfigPath)
	if err != nil {
		return CLIResult{ExitCode: ExitConfigError}, fmt.Errorf("reading build description: %w", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return CLIResult{ExitCode: ExitConfigError}, err
	}

	asm, err := Assemble(cfg, inv.WorkDir, DefaultToolchain(cfg))
	if err != nil {
		return CLIResult{ExitCode: setupExitCode(err)}, err
	}
	return runAssembly(ctx, asm)
}

// runAssembly finalizes and executes a wired assembly. Split out so tests
// can drive an assembly built with an injected toolchain.
func runAssembly(ctx context.Context, asm *Assembly) (CLIResult, error) {
	g, err := asm.Builder.Finalize()
	if err != nil {
		return CLIResult{ExitCode: ExitInternalError}, err
	}
	res, err := g.Run(ctx)
	if err != nil {
		return CLIResult{ExitCode: ExitInternalError}, err
	}
	if res.Failed() {
		return CLIResult{ExitCode: ExitBuildFailure, Result: res}, res.FirstError()
	}
	return CLIResult{ExitCode: ExitSuccess, Result: res}, nil
}

func setupExitCode(err error) int {
	if errors.Is(err, config.ErrInvalid) || errors.Is(err, shrink.ErrConfiguration) {
		return ExitConfigError
	}
	return ExitInternalError
}
