// Package archive records test-compilation output paths and prunes matching
// entries out of shrunk archives.
//
// The two halves bracket a shrink step: RecordClassFiles runs before it and
// Prune runs after it. Matching is exact canonical-path equality, never
// reachability- or content-based.
package archive

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"dexweave/internal/variant"
)

const classSuffix = ".class"

// RecordClassFiles walks root once and returns the canonical root-relative
// key of every class file, sorted. The result is consumed within the same
// build invocation only; it is never persisted.
func RecordClassFiles(root string) ([]variant.EntryKey, error) {
	var keys []variant.EntryKey
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, classSuffix) {
			return nil
		}
		key, err := variant.NewEntryKey(root, path)
		if err != nil {
			return err
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording class files under %q: %w", root, err)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}
