package jointc

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// partition splits the source tree by language extension. Files matching
// neither extension are ignored. Both slices come back sorted so decorated
// compiles are deterministic regardless of directory walk order.
func partition(sourceDirs []string, primaryExt, secondaryExt string) (primary, secondary []string, err error) {
	for _, dir := range sourceDirs {
		walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch {
			case strings.HasSuffix(path, primaryExt):
				primary = append(primary, path)
			case strings.HasSuffix(path, secondaryExt):
				secondary = append(secondary, path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, nil, walkErr
		}
	}
	sort.Strings(primary)
	sort.Strings(secondary)
	return primary, secondary, nil
}
