package jointc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExecCompiler invokes an external compiler binary.
//
// The command line is: <binary> <extra args...> -d <destDir> -cp <classpath>
// <sources...>, which matches the javac-style surface both JVM compilers
// expose. Diagnostics are whatever the process wrote to stderr (falling back
// to stdout), carried unmodified in the CompilerError.
type ExecCompiler struct {
	// Role is the label used in failure reports, "primary" or "secondary".
	Role string

	// Binary is the compiler executable.
	Binary string

	// Args are extra arguments inserted before the managed flags.
	Args []string
}

func (c *ExecCompiler) Compile(ctx context.Context, req CompileRequest) error {
	if len(req.Sources) == 0 {
		return nil
	}
	if c.Binary == "" {
		return fmt.Errorf("%s compiler binary not configured", c.Role)
	}

	args := append([]string(nil), c.Args...)
	args = append(args, "-d", req.DestDir)
	if len(req.Classpath) > 0 {
		args = append(args, "-cp", strings.Join(req.Classpath, string(filepath.ListSeparator)))
	}
	args = append(args, req.Sources...)

	cmd := exec.CommandContext(ctx, c.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return fmt.Errorf("starting %s compiler %q: %w", c.Role, c.Binary, err)
	}

	diagnostics := stderr.Bytes()
	if len(diagnostics) == 0 {
		diagnostics = stdout.Bytes()
	}
	return &CompilerError{Compiler: c.Role, ExitCode: exitErr.ExitCode(), Diagnostics: diagnostics}
}
