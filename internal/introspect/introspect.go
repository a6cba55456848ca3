// Package introspect detects, purely from a classpath, whether and which
// version of the secondary-language runtime is present.
//
// Detection never executes project code: it parses the version metadata the
// runtime ships inside its archive (manifest attributes or a release-info
// properties resource). The probe is scoped strictly to the given classpath
// entries, so the tool's own dependencies can never contaminate the result.
package introspect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zip"

	"dexweave/internal/variant"
)

const (
	manifestPath    = "META-INF/MANIFEST.MF"
	releaseInfoPath = "META-INF/runtime-release-info.properties"

	// markerTitle is the manifest Implementation-Title that identifies the
	// secondary-language runtime archive.
	markerTitle = "secondary-runtime"

	// releaseInfoVersionKey is the version property inside the release-info
	// resource.
	releaseInfoVersionKey = "ImplementationVersion"

	probeCacheSize = 128
)

// ErrVersionUnreadable reports a classpath entry that carries the runtime
// marker but no parseable version.
var ErrVersionUnreadable = errors.New("secondary runtime marker present but version unreadable")

var versionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

type probe struct {
	found   bool
	version string
}

// Detector resolves the secondary runtime version from classpaths.
//
// Per-archive metadata reads are memoized in a bounded cache keyed by the
// file's identity (path, size, mtime) so repeated probes of the same jar
// within one run stay cheap. Classpath-level results are never cached:
// different variants may carry different runtime versions and each Detect
// call walks its own entries.
type Detector struct {
	cache *lru.Cache[string, probe]
}

// NewDetector creates a Detector with an empty probe cache. State never
// survives a build invocation; construct one detector per run.
func NewDetector() *Detector {
	cache, err := lru.New[string, probe](probeCacheSize)
	if err != nil {
		// lru.New fails only for a non-positive size; probeCacheSize is a
		// positive constant.
		panic(fmt.Sprintf("introspect: probe cache: %v", err))
	}
	return &Detector{cache: cache}
}

// Detect scans the classpath in order and returns the version of the first
// entry carrying the secondary-runtime marker.
//
// Absence is a valid terminal outcome: found is false and err is nil.
// A non-nil error is returned only when a marker is present but its version
// cannot be read, or when the version is not a dotted numeric string.
func (d *Detector) Detect(cp variant.Classpath) (version string, found bool, err error) {
	for _, entry := range cp {
		p, err := d.probeEntry(entry)
		if err != nil {
			return "", false, err
		}
		if !p.found {
			continue
		}
		if !versionPattern.MatchString(p.version) {
			return "", false, fmt.Errorf("classpath entry %q: %w: malformed version %q", entry, ErrVersionUnreadable, p.version)
		}
		return p.version, true, nil
	}
	return "", false, nil
}

func (d *Detector) probeEntry(entry string) (probe, error) {
	info, err := os.Stat(entry)
	if err != nil {
		// Missing classpath entries resolve to nothing, same as an entry
		// without the marker.
		return probe{}, nil
	}

	if info.IsDir() {
		return probeDirectory(entry)
	}

	key := fmt.Sprintf("%s|%d|%d", entry, info.Size(), info.ModTime().UnixNano())
	if cached, ok := d.cache.Get(key); ok {
		return cached, nil
	}
	p, err := probeArchive(entry)
	if err != nil {
		return probe{}, err
	}
	d.cache.Add(key, p)
	return p, nil
}

// probeDirectory looks for the release-info resource under a class directory.
func probeDirectory(dir string) (probe, error) {
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(releaseInfoPath)))
	if err != nil {
		return probe{}, nil
	}
	version, ok := parseProperties(data)[releaseInfoVersionKey]
	if !ok || version == "" {
		return probe{}, fmt.Errorf("directory %q: %w", dir, ErrVersionUnreadable)
	}
	return probe{found: true, version: version}, nil
}

// probeArchive opens the archive and inspects its packaged metadata. The
// reader is closed on every exit path. A file that is not a readable zip is
// treated as an entry without the marker, not as an error.
func probeArchive(path string) (probe, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return probe{}, nil
	}
	defer r.Close()

	var manifest, releaseInfo *zip.File
	for _, f := range r.File {
		switch variant.EntryKeyFromArchivePath(f.Name).String() {
		case manifestPath:
			manifest = f
		case releaseInfoPath:
			releaseInfo = f
		}
	}

	if releaseInfo != nil {
		data, err := readArchiveFile(releaseInfo)
		if err != nil {
			return probe{}, fmt.Errorf("archive %q: %w: %v", path, ErrVersionUnreadable, err)
		}
		if version, ok := parseProperties(data)[releaseInfoVersionKey]; ok && version != "" {
			return probe{found: true, version: version}, nil
		}
		return probe{}, fmt.Errorf("archive %q: %w", path, ErrVersionUnreadable)
	}

	if manifest != nil {
		data, err := readArchiveFile(manifest)
		if err != nil {
			// Unreadable manifests are common in mangled jars; without the
			// marker title there is nothing to report.
			return probe{}, nil
		}
		attrs := parseManifest(data)
		if attrs["Implementation-Title"] != markerTitle {
			return probe{}, nil
		}
		version := attrs["Implementation-Version"]
		if version == "" {
			return probe{}, fmt.Errorf("archive %q: %w", path, ErrVersionUnreadable)
		}
		return probe{found: true, version: version}, nil
	}

	return probe{}, nil
}
