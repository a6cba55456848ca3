package variant

import (
	"fmt"
	"path/filepath"
	"strings"
)

// EntryKey is the canonicalized path of a compiled class file relative to its
// compile output root. It is the join key between "paths produced by test
// compilation" and "paths present in a shrunk archive".
//
// Keys are compared only by exact string equality, never by content hash.
// The canonical form uses forward slashes regardless of host platform, with
// no leading "./" or separator.
type EntryKey string

// NewEntryKey derives the key for path relative to root. It fails if path
// does not live under root.
func NewEntryKey(root, path string) (EntryKey, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("deriving entry key for %q under %q: %w", path, root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside root %q", path, root)
	}
	return EntryKey(filepath.ToSlash(rel)), nil
}

// EntryKeyFromArchivePath canonicalizes an archive entry name into key form.
// Archive entries are already slash-separated; this strips any leading "./"
// or "/" so both sides of the join agree.
func EntryKeyFromArchivePath(name string) EntryKey {
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	return EntryKey(name)
}

func (k EntryKey) String() string { return string(k) }
