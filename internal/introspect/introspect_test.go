package introspect

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"

	"dexweave/internal/variant"
)

func writeJar(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	zw := zip.NewWriter(f)
	for entryName, content := range entries {
		w, err := zw.Create(entryName)
		if err != nil {
			t.Fatalf("creating entry %s: %v", entryName, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing entry %s: %v", entryName, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing file: %v", err)
	}
	return path
}

func runtimeJar(t *testing.T, dir, name, version string) string {
	t.Helper()
	return writeJar(t, dir, name, map[string]string{
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0\r\nImplementation-Title: secondary-runtime\r\nImplementation-Version: " + version + "\r\n",
	})
}

func TestDetect_AbsenceIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	plain := writeJar(t, dir, "plain.jar", map[string]string{
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0\r\nImplementation-Title: something-else\r\n",
		"com/other/X.class":    "class-bytes",
	})

	d := NewDetector()
	version, found, err := d.Detect(variant.Classpath{plain})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if found || version != "" {
		t.Fatalf("expected absence, got %q", version)
	}
}

func TestDetect_ManifestMarker(t *testing.T) {
	dir := t.TempDir()
	jar := runtimeJar(t, dir, "runtime.jar", "4.0.21")

	d := NewDetector()
	version, found, err := d.Detect(variant.Classpath{jar})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !found || version != "4.0.21" {
		t.Fatalf("expected 4.0.21, got found=%v version=%q", found, version)
	}
}

func TestDetect_ReleaseInfoResourceWins(t *testing.T) {
	dir := t.TempDir()
	jar := writeJar(t, dir, "runtime.jar", map[string]string{
		"META-INF/MANIFEST.MF":                     "Manifest-Version: 1.0\r\n",
		"META-INF/runtime-release-info.properties": "# release info\nImplementationVersion=5.0.1\n",
	})

	d := NewDetector()
	version, found, err := d.Detect(variant.Classpath{jar})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !found || version != "5.0.1" {
		t.Fatalf("expected 5.0.1, got found=%v version=%q", found, version)
	}
}

func TestDetect_DirectoryEntry(t *testing.T) {
	dir := t.TempDir()
	classesDir := filepath.Join(dir, "classes")
	if err := os.MkdirAll(filepath.Join(classesDir, "META-INF"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	propsPath := filepath.Join(classesDir, "META-INF", "runtime-release-info.properties")
	if err := os.WriteFile(propsPath, []byte("ImplementationVersion=3.0.9\n"), 0o644); err != nil {
		t.Fatalf("write props: %v", err)
	}

	d := NewDetector()
	version, found, err := d.Detect(variant.Classpath{classesDir})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !found || version != "3.0.9" {
		t.Fatalf("expected 3.0.9, got found=%v version=%q", found, version)
	}
}

func TestDetect_OrderGivesPrecedence(t *testing.T) {
	dir := t.TempDir()
	first := runtimeJar(t, dir, "first.jar", "2.4.0")
	second := runtimeJar(t, dir, "second.jar", "3.0.0")

	d := NewDetector()
	version, found, err := d.Detect(variant.Classpath{first, second})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !found || version != "2.4.0" {
		t.Fatalf("expected earlier entry to win, got %q", version)
	}
}

func TestDetect_NoCrossClasspathContamination(t *testing.T) {
	dir := t.TempDir()
	withRuntime := runtimeJar(t, dir, "runtime.jar", "4.0.21")
	plain := writeJar(t, dir, "plain.jar", map[string]string{"a.txt": "a"})

	d := NewDetector()
	if _, found, err := d.Detect(variant.Classpath{withRuntime}); err != nil || !found {
		t.Fatalf("first classpath: found=%v err=%v", found, err)
	}
	// A different variant's classpath without the runtime must not inherit
	// the previous result.
	if _, found, err := d.Detect(variant.Classpath{plain}); err != nil || found {
		t.Fatalf("second classpath: found=%v err=%v", found, err)
	}
}

func TestDetect_MarkerWithoutVersionIsAnError(t *testing.T) {
	dir := t.TempDir()
	jar := writeJar(t, dir, "broken.jar", map[string]string{
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0\r\nImplementation-Title: secondary-runtime\r\n",
	})

	d := NewDetector()
	_, _, err := d.Detect(variant.Classpath{jar})
	if !errors.Is(err, ErrVersionUnreadable) {
		t.Fatalf("expected ErrVersionUnreadable, got %v", err)
	}
}

func TestDetect_MalformedVersionIsAnError(t *testing.T) {
	dir := t.TempDir()
	jar := runtimeJar(t, dir, "weird.jar", "4.0-SNAPSHOT")

	d := NewDetector()
	_, _, err := d.Detect(variant.Classpath{jar})
	if !errors.Is(err, ErrVersionUnreadable) {
		t.Fatalf("expected ErrVersionUnreadable, got %v", err)
	}
}

func TestDetect_NonArchiveEntriesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	notAZip := filepath.Join(dir, "garbage.jar")
	if err := os.WriteFile(notAZip, []byte("not a zip at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	jar := runtimeJar(t, dir, "runtime.jar", "4.0.21")

	d := NewDetector()
	version, found, err := d.Detect(variant.Classpath{notAZip, jar})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !found || version != "4.0.21" {
		t.Fatalf("expected 4.0.21 past the garbage entry, got %q", version)
	}
}

func TestParseManifest_ContinuationLines(t *testing.T) {
	attrs := parseManifest([]byte("Implementation-Title: secondary-\r\n runtime\r\nImplementation-Version: 4.0.21\r\n"))
	if attrs["Implementation-Title"] != "secondary-runtime" {
		t.Fatalf("continuation not folded: %q", attrs["Implementation-Title"])
	}
}
