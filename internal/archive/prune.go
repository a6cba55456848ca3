package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"dexweave/internal/variant"
)

// ErrIntegrity marks a prune that could not complete cleanly. It is fatal
// for the owning step and never retried: a half-pruned archive is worse than
// an unpruned one.
var ErrIntegrity = errors.New("archive integrity failure")

// PruneResult reports what a prune removed, per archive and in total.
type PruneResult struct {
	Removed    int
	PerArchive map[string]int
}

// Prune removes from each archive every entry whose canonical path exactly
// matches a recorded key.
//
// A recorded key absent from an archive is not an error; the shrinker may
// have optimized such classes away independently. The operation is atomic
// from the caller's perspective: replacement archives are fully staged as
// temporary files first and the originals swapped only once every archive
// staged cleanly. Any failure aborts with ErrIntegrity and the staged temps
// removed.
//
// Entries that survive are copied in their compressed form; unrelated
// entries are never recompressed.
func Prune(archives []string, recorded []variant.EntryKey) (result *PruneResult, err error) {
	keys := make(map[variant.EntryKey]struct{}, len(recorded))
	for _, k := range recorded {
		keys[k] = struct{}{}
	}

	result = &PruneResult{PerArchive: make(map[string]int, len(archives))}

	type staged struct {
		archive string
		tmp     string
	}
	var temps []staged
	defer func() {
		if err != nil {
			for _, s := range temps {
				os.Remove(s.tmp)
			}
		}
	}()

	for _, archivePath := range archives {
		tmp, removed, perr := pruneToTemp(archivePath, keys)
		if perr != nil {
			return nil, fmt.Errorf("%w: pruning %q: %v", ErrIntegrity, archivePath, perr)
		}
		temps = append(temps, staged{archive: archivePath, tmp: tmp})
		result.PerArchive[archivePath] = removed
		result.Removed += removed
	}

	for i, s := range temps {
		if rerr := os.Rename(s.tmp, s.archive); rerr != nil {
			// Temps from index i onward are cleaned by the deferred sweep;
			// archives before i are already swapped, which is exactly the
			// partial state the caller must treat as fatal.
			temps = temps[i:]
			return nil, fmt.Errorf("%w: replacing %q: %v", ErrIntegrity, s.archive, rerr)
		}
	}
	temps = nil
	return result, nil
}

// pruneToTemp writes a copy of archivePath without the matched entries to a
// temporary file in the same directory and returns its path. Open handles
// are released on every exit path.
func pruneToTemp(archivePath string, keys map[variant.EntryKey]struct{}) (tmpPath string, removed int, err error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", 0, err
	}
	defer zr.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(archivePath), ".prune-*.tmp")
	if err != nil {
		return "", 0, err
	}
	tmpPath = tmpFile.Name()
	defer func() {
		if err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(tmpFile)
	for _, f := range zr.File {
		if _, match := keys[variant.EntryKeyFromArchivePath(f.Name)]; match {
			removed++
			continue
		}
		if err = copyRaw(zw, f); err != nil {
			return "", 0, err
		}
	}
	if err = zw.Close(); err != nil {
		return "", 0, err
	}
	if err = tmpFile.Close(); err != nil {
		return "", 0, err
	}
	return tmpPath, removed, nil
}

// copyRaw transfers one entry without decompressing it.
func copyRaw(zw *zip.Writer, f *zip.File) error {
	header := f.FileHeader
	w, err := zw.CreateRaw(&header)
	if err != nil {
		return err
	}
	r, err := f.OpenRaw()
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	return err
}
