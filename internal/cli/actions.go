package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"dexweave/internal/jointc"
	"dexweave/internal/shrink"
	"dexweave/internal/variant"
)

// compileAction is the default body of an undecorated compile step: the
// primary compiler over the primary-language sources. The joint-compile
// orchestrator replaces it when the secondary runtime is detected.
type compileAction struct {
	taskID     string
	sourceDirs []string
	classpath  variant.Classpath
	destDir    string
	ext        string
	compiler   jointc.Compiler
}

func (a *compileAction) Name() string { return "compile:" + a.taskID }

func (a *compileAction) Run(ctx context.Context) error {
	var sources []string
	for _, dir := range a.sourceDirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, a.ext) {
				sources = append(sources, path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("collecting sources of %q: %w", a.taskID, err)
		}
	}
	sort.Strings(sources)

	if err := os.MkdirAll(a.destDir, 0o755); err != nil {
		return fmt.Errorf("creating destination of %q: %w", a.taskID, err)
	}
	return a.compiler.Compile(ctx, jointc.CompileRequest{
		Sources:   sources,
		Classpath: a.classpath,
		DestDir:   a.destDir,
	})
}

// shrinkAction is the body of a shrink step: one pass of the configured
// shrinker over the step's configuration.
type shrinkAction struct {
	taskID   string
	shrinker shrink.Shrinker
	cfg      *variant.ShrinkConfiguration
}

func (a *shrinkAction) Name() string { return "shrink:" + a.taskID }

func (a *shrinkAction) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(a.cfg.OutputArchive()), 0o755); err != nil {
		return fmt.Errorf("creating output of %q: %w", a.taskID, err)
	}
	return a.shrinker.Shrink(ctx, a.cfg)
}

// packageAction is the body of a dex/package step: it folds the staged
// inputs into the variant's deployable container. Staged libraries are
// resolution-only and never emitted.
type packageAction struct {
	taskID    string
	packaging *variant.PackagingStep
	outPath   string
}

func (a *packageAction) Name() string { return "package:" + a.taskID }

func (a *packageAction) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(a.outPath), 0o755); err != nil {
		return fmt.Errorf("creating output of %q: %w", a.taskID, err)
	}

	out, err := os.Create(a.outPath)
	if err != nil {
		return fmt.Errorf("creating %q: %w", a.outPath, err)
	}
	zw := zip.NewWriter(out)

	seen := make(map[string]struct{})
	for _, input := range a.packaging.Inputs {
		if err := mergeInput(zw, input, seen); err != nil {
			zw.Close()
			out.Close()
			os.Remove(a.outPath)
			return fmt.Errorf("packaging %q: %w", a.taskID, err)
		}
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(a.outPath)
		return fmt.Errorf("packaging %q: %w", a.taskID, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(a.outPath)
		return fmt.Errorf("packaging %q: %w", a.taskID, err)
	}
	return nil
}

// mergeInput copies one staged input, archive or directory, into the
// container. The first occurrence of an entry path wins.
func mergeInput(zw *zip.Writer, input string, seen map[string]struct{}) error {
	info, err := os.Stat(input)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return mergeDir(zw, input, seen)
	}
	return mergeArchive(zw, input, seen)
}

func mergeDir(zw *zip.Writer, dir string, seen map[string]struct{}) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		key, err := variant.NewEntryKey(dir, path)
		if err != nil {
			return err
		}
		if _, dup := seen[key.String()]; dup {
			return nil
		}
		seen[key.String()] = struct{}{}

		w, err := zw.Create(key.String())
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
}

func mergeArchive(zw *zip.Writer, archivePath string, seen map[string]struct{}) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		key := variant.EntryKeyFromArchivePath(f.Name).String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		header := f.FileHeader
		w, err := zw.CreateRaw(&header)
		if err != nil {
			return err
		}
		r, err := f.OpenRaw()
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, r); err != nil {
			return err
		}
	}
	return nil
}
