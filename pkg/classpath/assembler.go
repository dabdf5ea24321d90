// Package classpath assembles, normalizes and writes per-module classpaths.
package classpath

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"unicode"

	"gradlecp/pkg/gradle"
	"gradlecp/pkg/report"
	"gradlecp/pkg/resolve"
)

// ErrSDK is returned when a configured Android SDK cannot be used
var ErrSDK = errors.New("invalid Android SDK")

// ModuleOutputDirs are the build outputs a project dependency contributes
var ModuleOutputDirs = []string{
	"build/intermediates/javac/debug/classes",
	"build/intermediates/javac/debugAndroidTest/classes",
	"build/intermediates/compile_r_class_jar/debug/R.jar",
	"build/intermediates/compile_and_runtime_not_namespaced_r_class_jar/debug/R.jar",
	"build/tmp/kotlin-classes/debug",
	"build/tmp/kotlin-classes/main",
	"build/classes/java/main",
	"build/classes/kotlin/main",
	"build/tmp/kapt3/classes/debug",
	"build/generated/res/resValues/debug",
	"build/generated/res/rs/debug",
	"build/generated/crashlytics/res/debug",
	"build/generated/res/google-services/debug",
}

// bomArtifact only pins versions of other artifacts and has no archives
const bomArtifact = "firebase-bom"

// Classpath is the assembled classpath of one module
type Classpath struct {
	Module  string
	Entries []string
	// LowConfidence is set when a library was resolved through heuristic edges
	LowConfidence bool
}

// Assembler builds module classpaths from a parsed project
type Assembler struct {
	Project  *gradle.Project
	Strategy resolve.Strategy
	SDK      string
	Alias    *Alias
	Reporter report.Reporter
	Gaps     *report.Once
}

// NewAssembler creates an assembler; sdk may be empty
func NewAssembler(project *gradle.Project, strategy resolve.Strategy, sdk string, alias *Alias, r report.Reporter, gaps *report.Once) *Assembler {
	if r == nil {
		r = report.Nop()
	}
	if gaps == nil {
		gaps = report.NewOnce(r)
	}
	return &Assembler{Project: project, Strategy: strategy, SDK: sdk, Alias: alias, Reporter: r, Gaps: gaps}
}

// Assemble computes the classpath of the module with the given name or path
func (a *Assembler) Assemble(ctx context.Context, module string) (*Classpath, error) {
	declaration, ok := a.Project.Module(module)
	if !ok {
		return nil, fmt.Errorf("%w: module %s not found", gradle.ErrConfig, module)
	}
	deps, err := a.Project.TransitiveDependencies(declaration.Path)
	if err != nil {
		return nil, err
	}

	result := &Classpath{Module: declaration.Name}
	root := a.Project.Root
	paths := moduleLibs(filepath.Join(root, declaration.Path))

	for _, dep := range deps {
		switch dep.Kind {
		case gradle.KindFiles:
			paths = append(paths, filepath.Join(root, dep.ModulePath, dep.FilePath))

		case gradle.KindProject:
			modulePath, ok := a.Project.ModulePath(dep.ModuleName)
			if !ok {
				return nil, fmt.Errorf("%w: module %s not declared", gradle.ErrConfig, dep.ModuleName)
			}
			dir := filepath.Join(root, modulePath)
			for _, output := range ModuleOutputDirs {
				paths = append(paths, filepath.Join(dir, output))
			}
			paths = append(paths, moduleLibs(dir)...)

		case gradle.KindLibrary:
			libraryPaths, lowConfidence, err := a.library(ctx, dep)
			if err != nil {
				return nil, err
			}
			paths = append(paths, libraryPaths...)
			result.LowConfidence = result.LowConfidence || lowConfidence
		}
	}

	sdkPaths, err := SDKPaths(a.SDK)
	if err != nil {
		return nil, err
	}
	paths = append(paths, sdkPaths...)

	for i, path := range paths {
		paths[i] = a.Alias.Rewrite(path)
	}
	result.Entries = Optimize(root, paths)
	a.Reporter.Debug("Assembled classpath", "module", result.Module, "entries", len(result.Entries))
	return result, nil
}

func (a *Assembler) library(ctx context.Context, dep gradle.Dependency) ([]string, bool, error) {
	version, ok := LibraryVersion(dep.Version, a.Project.Properties)
	if !ok {
		a.Gaps.Warn(dep.Artifact+" ("+dep.Version+")", "Unknown version placeholder", "artifact", dep.Artifact, "placeholder", dep.Version)
		return nil, false, nil
	}
	coordinate, err := resolve.ParseArtifact(dep.Artifact, version)
	if err != nil {
		a.Gaps.Warn(dep.Artifact+" ("+version+")", "Unrecognized artifact", "artifact", dep.Artifact)
		return nil, false, nil
	}
	if coordinate.ArtifactID == bomArtifact {
		return nil, false, nil
	}

	resolution, err := a.Strategy.Resolve(ctx, coordinate)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve %s: %w", coordinate, err)
	}
	paths := resolution.Paths()
	if len(paths) == 0 {
		a.Gaps.Warn(dep.Artifact+" ("+version+")", "Library not resolved", "artifact", coordinate.String())
	}
	return paths, resolution.LowConfidence, nil
}

// LibraryVersion resolves a declared version: empty means latest, a version
// starting with a digit is literal, anything else names a property
func LibraryVersion(declared string, properties map[string]string) (string, bool) {
	if declared == "" || unicode.IsDigit(rune(declared[0])) {
		return declared, true
	}
	version, ok := properties[declared]
	return version, ok
}

func moduleLibs(moduleDir string) []string {
	matches, _ := filepath.Glob(filepath.Join(moduleDir, "libs", "*.jar"))
	return matches
}

// SDKPaths returns android.jar and data/res of the greatest installed
// platform. An empty sdk yields nothing.
func SDKPaths(sdk string) ([]string, error) {
	if sdk == "" {
		return nil, nil
	}
	if info, err := os.Stat(sdk); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSDK, sdk)
	}

	matches, err := filepath.Glob(filepath.Join(sdk, "platforms", "android-*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list platforms: %w", err)
	}
	var platforms []string
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil && info.IsDir() {
			platforms = append(platforms, match)
		}
	}
	if len(platforms) == 0 {
		return nil, fmt.Errorf("%w: no platforms in %s", ErrSDK, sdk)
	}
	sort.Strings(platforms)
	platform := platforms[len(platforms)-1]
	return []string{
		filepath.Join(platform, "android.jar"),
		filepath.Join(platform, "data", "res"),
	}, nil
}
