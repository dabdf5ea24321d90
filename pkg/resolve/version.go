package resolve

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Comparator orders two version strings like strings.Compare
type Comparator func(a, b string) int

// Lexical compares versions as plain strings
func Lexical(a, b string) int {
	return strings.Compare(a, b)
}

// Semantic compares versions as semantic versions. When either side does not
// parse, the comparison falls back to Lexical.
func Semantic(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return Lexical(a, b)
	}
	return va.Compare(vb)
}

// NewComparator returns the comparator for a configured version order
func NewComparator(order string) (Comparator, error) {
	switch order {
	case "", "lexical":
		return Lexical, nil
	case "semantic":
		return Semantic, nil
	default:
		return nil, fmt.Errorf("unknown version order %q", order)
	}
}

// Latest returns the greatest of versions, or "" when there are none
func Latest(versions []string, cmp Comparator) string {
	latest := ""
	for i, v := range versions {
		if i == 0 || cmp(v, latest) > 0 {
			latest = v
		}
	}
	return latest
}

// Select picks the version to use for a request: the exact version if
// available, otherwise the smallest available version above the request,
// otherwise the greatest available. An empty request picks the greatest.
func Select(requested string, available []string, cmp Comparator) (string, bool) {
	if len(available) == 0 {
		return "", false
	}
	requested = normalizeRequested(requested)
	if requested == "" {
		return Latest(available, cmp), true
	}

	closest := ""
	for _, v := range available {
		if v == requested {
			return v, true
		}
		if cmp(v, requested) > 0 && (closest == "" || cmp(v, closest) < 0) {
			closest = v
		}
	}
	if closest != "" {
		return closest, true
	}
	return Latest(available, cmp), true
}

// normalizeRequested treats unresolved property references and version ranges
// as "latest"
func normalizeRequested(version string) string {
	version = strings.TrimSpace(version)
	if strings.Contains(version, "${") || strings.HasPrefix(version, "[") || strings.HasPrefix(version, "(") {
		return ""
	}
	return version
}
