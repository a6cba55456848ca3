package introspect

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

func readArchiveFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// parseProperties reads a java-style properties resource: key=value lines,
// '#' and '!' comments, surrounding whitespace trimmed.
func parseProperties(data []byte) map[string]string {
	props := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		props[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return props
}

// parseManifest reads jar manifest main-section attributes, including
// 72-byte continuation lines (a leading space continues the previous value).
func parseManifest(data []byte) map[string]string {
	attrs := make(map[string]string)
	var lastKey string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			// Blank line ends the main section; per-entry sections never
			// carry the runtime marker.
			break
		}
		if strings.HasPrefix(line, " ") {
			if lastKey != "" {
				attrs[lastKey] += strings.TrimPrefix(line, " ")
			}
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		lastKey = strings.TrimSpace(key)
		attrs[lastKey] = strings.TrimSpace(value)
	}
	return attrs
}
