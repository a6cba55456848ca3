package variant

import (
	"path/filepath"
	"strings"
)

// Classpath is an ordered sequence of archive and directory paths.
//
// Order is meaningful: earlier entries take resolution precedence. Duplicates
// are not rejected on construction; set operations work on canonical paths.
type Classpath []string

// ParseClasspath splits a platform list-separator-joined string into a
// Classpath, dropping empty segments.
func ParseClasspath(joined string) Classpath {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, string(filepath.ListSeparator))
	cp := make(Classpath, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		cp = append(cp, p)
	}
	return cp
}

// JoinList renders the classpath as a platform list-separator-joined string,
// the form consumed by compiler command lines.
func (c Classpath) JoinList() string {
	return strings.Join(c, string(filepath.ListSeparator))
}

// Append returns a new Classpath with the given entries appended.
// The receiver is never mutated; decorated compile steps extend a shared
// classpath without affecting the original.
func (c Classpath) Append(entries ...string) Classpath {
	out := make(Classpath, 0, len(c)+len(entries))
	out = append(out, c...)
	out = append(out, entries...)
	return out
}

// Minus returns the entries of c whose canonical path does not appear in
// other. Order of the surviving entries is preserved.
//
// Set difference is canonical-path-based: two spellings of the same path
// count as the same entry.
func (c Classpath) Minus(other Classpath) Classpath {
	if len(other) == 0 {
		return append(Classpath(nil), c...)
	}
	excluded := make(map[string]struct{}, len(other))
	for _, p := range other {
		excluded[CanonicalPath(p)] = struct{}{}
	}
	out := make(Classpath, 0, len(c))
	for _, p := range c {
		if _, skip := excluded[CanonicalPath(p)]; skip {
			continue
		}
		out = append(out, p)
	}
	return out
}

// CanonicalPath normalizes a filesystem path for identity comparison:
// cleaned, slash-separated. Relative paths stay relative; canonicalization
// is purely lexical and never consults the filesystem.
func CanonicalPath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
