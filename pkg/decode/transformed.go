// Package decode recovers artifact coordinates from the cache's file names,
// directory layout, POM files and binary metadata descriptors.
package decode

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrFormat is wrapped by every decoding failure
var ErrFormat = errors.New("format violation")

// Entry is an artifact id and version recovered from a transformed cache path
type Entry struct {
	ArtifactID string
	Version    string
}

// Key joins artifact id and version for index lookups
func (e Entry) Key() string {
	return e.ArtifactID + ":" + e.Version
}

// DecodeTransformedCacheEntry recovers the artifact id and version from a path
// inside transforms-N/<hash>/transformed/. Paths under a jars/ directory take
// their name from the enclosing transformed directory.
func DecodeTransformedCacheEntry(path string) (Entry, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	n := len(parts)

	var description string
	switch {
	case n >= 3 && parts[n-2] == "jars":
		description = parts[n-3]
	case n >= 4 && parts[n-2] == "libs" && parts[n-3] == "jars":
		description = parts[n-4]
	default:
		last := parts[n-1]
		switch {
		case strings.HasSuffix(last, ".jar"):
			description = strings.TrimSuffix(last, ".jar")
		case strings.HasSuffix(last, ".aar"):
			description = strings.TrimSuffix(last, ".aar")
		default:
			return Entry{}, fmt.Errorf("%w: unknown extension: %s", ErrFormat, path)
		}
	}

	segments := strings.Split(description, "-")
	if len(segments) > 1 && segments[0] == "jetified" {
		segments = segments[1:]
	}
	if len(segments) > 1 && segments[len(segments)-1] == "api" {
		segments = segments[:len(segments)-1]
	}

	versionStart := -1
	for i, segment := range segments {
		if segment != "" && unicode.IsDigit(rune(segment[0])) && strings.Contains(segment, ".") {
			versionStart = i
			break
		}
	}
	if versionStart == -1 {
		// Versions such as content hashes carry no dot
		versionStart = len(segments) - 1
	}

	return Entry{
		ArtifactID: strings.Join(segments[:versionStart], "-"),
		Version:    strings.Join(segments[versionStart:], "-"),
	}, nil
}
