package shrink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dexweave/internal/variant"
)

// ErrShrinker marks a shrink pass that reported diagnostics.
var ErrShrinker = errors.New("shrinker failure")

// Shrinker runs one shrink pass over a configuration.
type Shrinker interface {
	Shrink(ctx context.Context, cfg *variant.ShrinkConfiguration) error
}

// ShrinkerError carries the external shrinker's diagnostics verbatim.
type ShrinkerError struct {
	ExitCode    int
	Diagnostics []byte
}

func (e *ShrinkerError) Error() string {
	if len(e.Diagnostics) == 0 {
		return fmt.Sprintf("shrinker failed (exit %d)", e.ExitCode)
	}
	return fmt.Sprintf("shrinker failed (exit %d):\n%s", e.ExitCode, e.Diagnostics)
}

func (e *ShrinkerError) Unwrap() error { return ErrShrinker }

// Render produces the shrinker invocation text for a configuration:
// input archives, resolution-only library archives, the single output
// archive, then the ordered rule set. Rendering identical configurations
// yields byte-identical text.
func Render(cfg *variant.ShrinkConfiguration) string {
	var b strings.Builder
	for _, in := range cfg.Inputs() {
		fmt.Fprintf(&b, "-injars %q\n", in)
	}
	for _, lib := range cfg.Libraries() {
		fmt.Fprintf(&b, "-libraryjars %q\n", lib)
	}
	fmt.Fprintf(&b, "-outjars %q\n", cfg.OutputArchive())
	for _, rule := range cfg.Rules() {
		b.WriteString(rule)
		b.WriteByte('\n')
	}
	return b.String()
}

// ExecShrinker invokes an external proguard-style shrinker binary with the
// rendered configuration passed as an @-file.
type ExecShrinker struct {
	Binary string
	Args   []string
}

func (s *ExecShrinker) Shrink(ctx context.Context, cfg *variant.ShrinkConfiguration) error {
	if s.Binary == "" {
		return configf("shrinker binary not configured")
	}

	confFile, err := os.CreateTemp(filepath.Dir(cfg.OutputArchive()), ".shrink-*.pro")
	if err != nil {
		return fmt.Errorf("staging shrinker configuration: %w", err)
	}
	defer os.Remove(confFile.Name())
	if _, err := confFile.WriteString(Render(cfg)); err != nil {
		confFile.Close()
		return fmt.Errorf("writing shrinker configuration: %w", err)
	}
	if err := confFile.Close(); err != nil {
		return fmt.Errorf("writing shrinker configuration: %w", err)
	}

	args := append([]string(nil), s.Args...)
	args = append(args, "@"+confFile.Name())

	cmd := exec.CommandContext(ctx, s.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err == nil {
		return nil
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return fmt.Errorf("starting shrinker %q: %w", s.Binary, err)
	}
	diagnostics := stderr.Bytes()
	if len(diagnostics) == 0 {
		diagnostics = stdout.Bytes()
	}
	return &ShrinkerError{ExitCode: exitErr.ExitCode(), Diagnostics: diagnostics}
}
