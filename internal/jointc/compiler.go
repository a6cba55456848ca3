// Package jointc wraps a variant's compile step so the secondary-language
// compiler and the primary-language compiler run in a mandated order into a
// shared destination directory.
package jointc

import (
	"context"
	"errors"
	"fmt"
)

// ErrSubCompiler marks the failure of either sub-compiler inside a decorated
// compile step.
var ErrSubCompiler = errors.New("sub-compiler failure")

// CompileRequest is one sub-compiler invocation.
type CompileRequest struct {
	// Sources is the language partition this compiler is responsible for.
	Sources []string

	// Classpath is the resolution classpath, already extended with the
	// shared destination directory for the primary pass.
	Classpath []string

	// DestDir is the shared output directory both compilers emit into.
	DestDir string
}

// Compiler runs one language's compiler over its partition.
type Compiler interface {
	Compile(ctx context.Context, req CompileRequest) error
}

// CompilerError carries a sub-compiler's diagnostics verbatim. Nothing
// upstream rewrites or summarizes Diagnostics; the bytes the compiler wrote
// are the bytes the user sees.
type CompilerError struct {
	Compiler    string // "primary" or "secondary"
	ExitCode    int
	Diagnostics []byte
}

func (e *CompilerError) Error() string {
	if len(e.Diagnostics) == 0 {
		return fmt.Sprintf("%s compiler failed (exit %d)", e.Compiler, e.ExitCode)
	}
	return fmt.Sprintf("%s compiler failed (exit %d):\n%s", e.Compiler, e.ExitCode, e.Diagnostics)
}

func (e *CompilerError) Unwrap() error { return ErrSubCompiler }
