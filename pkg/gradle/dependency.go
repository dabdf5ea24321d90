package gradle

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat marks a build input line that cannot be parsed safely
	ErrFormat = errors.New("malformed build script")
	// ErrConfig marks a structurally inconsistent project
	ErrConfig = errors.New("invalid project configuration")
)

// Relation is the declared propagation kind of a dependency edge
type Relation string

const (
	Implementation            Relation = "implementation"
	API                       Relation = "api"
	CompileOnly               Relation = "compileOnly"
	DebugImplementation       Relation = "debugImplementation"
	AndroidTestImplementation Relation = "androidTestImplementation"
	TestImplementation        Relation = "testImplementation"
)

// Kind tells which fields of a Dependency are meaningful
type Kind int

const (
	KindFiles Kind = iota
	KindProject
	KindLibrary
)

func (k Kind) String() string {
	switch k {
	case KindFiles:
		return "files"
	case KindProject:
		return "project"
	case KindLibrary:
		return "library"
	default:
		return "unknown"
	}
}

// Dependency is one declaration from a module build script.
// Files uses ModulePath and FilePath, Project uses ModuleName, Library uses
// Artifact (group:name) and Version (literal, placeholder or empty).
type Dependency struct {
	Kind       Kind
	Relation   Relation
	ModulePath string
	FilePath   string
	ModuleName string
	Artifact   string
	Version    string
}

// Files creates a local file dependency
func Files(modulePath, filePath string, relation Relation) Dependency {
	return Dependency{Kind: KindFiles, ModulePath: modulePath, FilePath: filePath, Relation: relation}
}

// ProjectDependency creates an inter-module dependency
func ProjectDependency(moduleName string, relation Relation) Dependency {
	return Dependency{Kind: KindProject, ModuleName: moduleName, Relation: relation}
}

// Library creates an external library dependency
func Library(artifact, version string, relation Relation) Dependency {
	return Dependency{Kind: KindLibrary, Artifact: artifact, Version: version, Relation: relation}
}

// Transitive reports whether the dependency propagates to dependents of its module
func (d Dependency) Transitive() bool {
	return d.Relation == API
}

// WithRelation returns a copy with a different relation
func (d Dependency) WithRelation(relation Relation) Dependency {
	d.Relation = relation
	return d
}

func (d Dependency) String() string {
	switch d.Kind {
	case KindFiles:
		return fmt.Sprintf("%s files(%s/%s)", d.Relation, d.ModulePath, d.FilePath)
	case KindProject:
		return fmt.Sprintf("%s project(%s)", d.Relation, d.ModuleName)
	default:
		return fmt.Sprintf("%s %s:%s", d.Relation, d.Artifact, d.Version)
	}
}

// ModuleDeclaration is a module listed in the settings file
type ModuleDeclaration struct {
	Name string
	Path string
}
