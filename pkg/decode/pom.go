package decode

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// Scope is a Maven dependency scope
type Scope string

const (
	ScopeCompile  Scope = "compile"
	ScopeProvided Scope = "provided"
	ScopeRuntime  Scope = "runtime"
	ScopeTest     Scope = "test"
	ScopeSystem   Scope = "system"
	ScopeImport   Scope = "import"
)

// Transitive reports whether dependencies of this scope are followed
func (s Scope) Transitive() bool {
	return s == ScopeCompile
}

func parseScope(value string) (Scope, error) {
	switch scope := Scope(strings.ToLower(strings.TrimSpace(value))); scope {
	case "":
		return ScopeCompile, nil
	case ScopeCompile, ScopeProvided, ScopeRuntime, ScopeTest, ScopeSystem, ScopeImport:
		return scope, nil
	default:
		return "", fmt.Errorf("%w: unknown scope %q", ErrFormat, value)
	}
}

// PomDescriptor identifies a POM's artifact. Version may be empty.
type PomDescriptor struct {
	GroupID    string
	ArtifactID string
	Version    string
}

func (d PomDescriptor) String() string {
	return fmt.Sprintf("%s:%s:%s", d.GroupID, d.ArtifactID, d.Version)
}

// PomDependency is one declared dependency with its scope
type PomDependency struct {
	PomDescriptor
	Scope Scope
}

// Pom is a parsed POM file
type Pom struct {
	Descriptor   PomDescriptor
	Dependencies []PomDependency
}

// mavenPOM mirrors the parts of a POM document that are read
type mavenPOM struct {
	XMLName      xml.Name `xml:"project"`
	GroupID      string   `xml:"groupId"`
	ArtifactID   string   `xml:"artifactId"`
	Version      string   `xml:"version"`
	Dependencies struct {
		Dependency []mavenDependency `xml:"dependency"`
	} `xml:"dependencies"`
}

type mavenDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
}

// DecodePomPath reads group, artifact and version from the 5th, 4th and 3rd
// from last segments of a cached POM path.
func DecodePomPath(path string) (PomDescriptor, error) {
	parts := strings.Split(path, "/")
	n := len(parts)
	if n < 5 {
		return PomDescriptor{}, fmt.Errorf("%w: unexpected POM path layout: %s", ErrFormat, path)
	}
	desc := PomDescriptor{
		GroupID:    parts[n-5],
		ArtifactID: parts[n-4],
		Version:    parts[n-3],
	}
	if desc.GroupID == "" || desc.ArtifactID == "" || desc.Version == "" {
		return PomDescriptor{}, fmt.Errorf("%w: unexpected POM path layout: %s", ErrFormat, path)
	}
	return desc, nil
}

// ParsePom decodes POM XML. The descriptor comes from the caller since cached
// POMs often inherit their coordinates from a parent.
func ParsePom(r io.Reader, descriptor PomDescriptor) (*Pom, error) {
	var doc mavenPOM
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse POM XML for %s: %v", ErrFormat, descriptor, err)
	}

	pom := &Pom{Descriptor: descriptor}
	for _, dep := range doc.Dependencies.Dependency {
		groupID := strings.TrimSpace(dep.GroupID)
		artifactID := strings.TrimSpace(dep.ArtifactID)
		if groupID == "" {
			return nil, fmt.Errorf("%w: no value for groupId in %s", ErrFormat, descriptor)
		}
		if artifactID == "" {
			return nil, fmt.Errorf("%w: no value for artifactId in %s", ErrFormat, descriptor)
		}
		scope, err := parseScope(dep.Scope)
		if err != nil {
			return nil, fmt.Errorf("%w in %s", err, descriptor)
		}
		pom.Dependencies = append(pom.Dependencies, PomDependency{
			PomDescriptor: PomDescriptor{
				GroupID:    groupID,
				ArtifactID: artifactID,
				Version:    strings.TrimSpace(dep.Version),
			},
			Scope: scope,
		})
	}

	return pom, nil
}

// ParsePomFile decodes the POM at path, taking its coordinates from the path
func ParsePomFile(path string) (*Pom, error) {
	descriptor, err := DecodePomPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open POM: %w", err)
	}
	defer file.Close()

	return ParsePom(file, descriptor)
}
