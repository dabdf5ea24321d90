package gradle

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gradlecp/pkg/report"
)

// BuildFileName is the per-module build script
const BuildFileName = "build.gradle"

// BuildScript contains the parsed dependency declarations of one module
type BuildScript struct {
	ModulePath   string
	Dependencies []Dependency
	Skipped      []string // lines that matched no dependency shape
}

// dependencyPattern maps a collapsed line prefix to a dependency builder.
// Patterns are tried in order and the first matching prefix wins.
type dependencyPattern struct {
	prefix  string
	exclude string
	build   func(p *scriptParser, line string) (Dependency, bool, error)
}

func ignoreLine(*scriptParser, string) (Dependency, bool, error) {
	return Dependency{}, false, nil
}

func filesDependency(relation Relation) func(*scriptParser, string) (Dependency, bool, error) {
	return func(p *scriptParser, line string) (Dependency, bool, error) {
		if strings.Count(line, "'") != 2 {
			return Dependency{}, false, fmt.Errorf("%w: failed to parse file dependency: %s", ErrFormat, line)
		}
		start := strings.Index(line, "'")
		end := strings.LastIndex(line, "'")
		return Files(p.modulePath, line[start+1:end], relation), true, nil
	}
}

func projectDependency(relation Relation) func(*scriptParser, string) (Dependency, bool, error) {
	return func(_ *scriptParser, line string) (Dependency, bool, error) {
		start := strings.Index(line, "':")
		end := strings.LastIndex(line, "'")
		if start == -1 || end <= start+1 {
			return Dependency{}, false, fmt.Errorf("%w: failed to parse module dependency: %s", ErrFormat, line)
		}
		name := strings.ReplaceAll(line[start+2:end], ":", "/")
		return ProjectDependency(name, relation), true, nil
	}
}

func libraryDependency(relation Relation) func(*scriptParser, string) (Dependency, bool, error) {
	return func(p *scriptParser, line string) (Dependency, bool, error) {
		if !strings.Contains(line, "'") {
			// Catalog accessors such as libs.foo carry no coordinate text
			return Dependency{}, false, nil
		}
		artifact, version, err := p.parseLibrary(line)
		if err != nil {
			return Dependency{}, false, err
		}
		return Library(artifact, version, relation), true, nil
	}
}

var dependencyPatterns = []dependencyPattern{
	{prefix: "implementationfileTree", build: ignoreLine},
	{prefix: "implementationfiles", build: filesDependency(Implementation)},
	{prefix: "apifiles", build: filesDependency(API)},
	{prefix: "implementationproject", build: projectDependency(Implementation)},
	{prefix: "debugImplementationproject", build: projectDependency(DebugImplementation)},
	{prefix: "apiproject", build: projectDependency(API)},
	{prefix: "compileOnlyproject", build: projectDependency(CompileOnly)},
	{prefix: "androidTestImplementationproject", build: projectDependency(AndroidTestImplementation)},
	{prefix: "testImplementationproject", build: projectDependency(TestImplementation)},
	{prefix: "implementation", build: libraryDependency(Implementation)},
	{prefix: "api", exclude: "apiLevel", build: libraryDependency(API)},
	{prefix: "androidTestImplementation", build: libraryDependency(AndroidTestImplementation)},
	{prefix: "testImplementation", build: libraryDependency(TestImplementation)},
}

var versionToken = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type scriptParser struct {
	path       string
	modulePath string
	properties map[string]string
	variables  map[string]string
}

// collapse removes spaces and opening parentheses for prefix matching
func collapse(line string) string {
	return strings.TrimSpace(strings.NewReplacer(" ", "", "(", "").Replace(line))
}

// ParseModuleBuildScript parses <root>/<modulePath>/build.gradle.
// project.ext assignments are written into properties so later lines and
// later modules can resolve them.
func ParseModuleBuildScript(root, modulePath string, properties map[string]string, r report.Reporter) (*BuildScript, error) {
	path := filepath.Join(root, modulePath, BuildFileName)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	defer file.Close()

	p := &scriptParser{
		path:       path,
		modulePath: modulePath,
		properties: properties,
		variables:  make(map[string]string),
	}
	script := &BuildScript{ModulePath: modulePath}
	seen := make(map[Dependency]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.ReplaceAll(strings.TrimSpace(scanner.Text()), `"`, "'")
		if line == "" ||
			strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "//") ||
			strings.HasPrefix(line, "implementationClass") {
			continue
		}

		if strings.HasPrefix(line, "project.ext") {
			if err := p.parseProperty(line); err != nil {
				return nil, err
			}
			continue
		}
		if isVariableDefinition(line) {
			if err := p.parseVariable(line); err != nil {
				return nil, err
			}
			continue
		}

		dep, ok, err := p.match(line)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if !ok {
			script.Skipped = append(script.Skipped, line)
			continue
		}
		if !seen[dep] {
			seen[dep] = true
			script.Dependencies = append(script.Dependencies, dep)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	for _, line := range script.Skipped {
		r.Debug("Skipping line", "file", path, "line", line)
	}
	return script, nil
}

func (p *scriptParser) match(line string) (Dependency, bool, error) {
	collapsed := collapse(line)
	for _, pattern := range dependencyPatterns {
		if !strings.HasPrefix(collapsed, pattern.prefix) {
			continue
		}
		if pattern.exclude != "" && strings.HasPrefix(collapsed, pattern.exclude) {
			continue
		}
		return pattern.build(p, line)
	}
	return Dependency{}, false, nil
}

func (p *scriptParser) parseProperty(line string) error {
	parts := strings.Split(line, "=")
	if len(parts) != 2 {
		return fmt.Errorf("%w: %s: failed to parse property: %s", ErrFormat, p.path, line)
	}
	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(strings.ReplaceAll(parts[1], "'", ""))
	p.properties[key] = value
	return nil
}

func isVariableDefinition(line string) bool {
	return strings.HasPrefix(line, "def ") &&
		strings.Contains(line, "=") &&
		strings.Contains(line, "rootProject") &&
		strings.Contains(line, "property")
}

// parseVariable handles: def name = rootProject.property('key')
func (p *scriptParser) parseVariable(line string) error {
	eq := strings.Index(line, "=")
	name := strings.TrimSpace(line[len("def "):eq])
	start := strings.Index(line, "'")
	if name == "" || start == -1 {
		return fmt.Errorf("%w: %s: failed to parse variable: %s", ErrFormat, p.path, line)
	}
	end := strings.Index(line[start+1:], "'")
	if end == -1 {
		return fmt.Errorf("%w: %s: failed to parse variable value: %s", ErrFormat, p.path, line)
	}
	p.variables[name] = strings.TrimSpace(line[start+1 : start+1+end])
	return nil
}

// parseLibrary returns the group:name artifact and the version text, which
// may be a literal, a placeholder name or empty for "latest".
func (p *scriptParser) parseLibrary(line string) (string, string, error) {
	switch {
	case strings.Contains(line, "group:") && strings.Contains(line, "name:"):
		return p.parseNamedArguments(line)

	case strings.Contains(line, "rootProject"):
		parts := strings.Split(line, "rootProject")
		left := parts[0]
		start := strings.Index(left, "'")
		end := strings.LastIndex(left, ":")
		if start == -1 || end <= start {
			return "", "", fmt.Errorf("%w: failed to parse library dependency: %s", ErrFormat, line)
		}
		version := ""
		if len(parts) == 2 {
			version, _ = textBetweenFirstQuotes(parts[1])
		}
		return left[start+1 : end], version, nil

	case strings.Count(line, ":") == 1:
		artifact, err := textInQuotes(line)
		if err != nil {
			return "", "", err
		}
		return artifact, "", nil

	default:
		cropped := line
		if strings.Contains(cropped, ":all'") {
			cropped = strings.Replace(cropped, ":all'", "'", 1)
		}
		start := strings.Index(cropped, "'")
		end := strings.LastIndex(cropped, ":")
		if start == -1 || end <= start {
			return "", "", fmt.Errorf("%w: failed to parse library dependency: %s", ErrFormat, line)
		}
		version, err := p.extractVersion(cropped)
		if err != nil {
			return "", "", err
		}
		return cropped[start+1 : end], version, nil
	}
}

func (p *scriptParser) parseNamedArguments(line string) (string, string, error) {
	var group, name, version string
	var hasVersion bool
	for _, part := range strings.Split(line, ",") {
		var err error
		switch {
		case strings.Contains(part, "group:"):
			group, err = textInQuotes(part)
		case strings.Contains(part, "name:"):
			name, err = textInQuotes(part)
		case strings.Contains(part, "version:"):
			version, err = textInQuotes(part)
			hasVersion = true
		}
		if err != nil {
			return "", "", err
		}
	}
	switch {
	case group == "":
		return "", "", fmt.Errorf("%w: failed to parse parameter 'group' in line: %s", ErrFormat, line)
	case name == "":
		return "", "", fmt.Errorf("%w: failed to parse parameter 'name' in line: %s", ErrFormat, line)
	case !hasVersion:
		return "", "", fmt.Errorf("%w: failed to parse parameter 'version' in line: %s", ErrFormat, line)
	}
	return group + ":" + name, p.dereference(stripPlaceholder(version)), nil
}

// extractVersion reads the version after the last colon of a shorthand
// declaration. Local variables are substituted when the text alone does not
// yield a version.
func (p *scriptParser) extractVersion(arg string) (string, error) {
	if version, ok := versionAfterLastColon(arg, false); ok {
		return p.dereference(version), nil
	}

	names := make([]string, 0, len(p.variables))
	for name := range p.variables {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	for _, name := range names {
		if strings.Contains(arg, "$"+name) {
			if version, ok := versionAfterLastColon(strings.ReplaceAll(arg, "$"+name, p.variables[name]), false); ok {
				return version, nil
			}
		}
	}

	if version, ok := versionAfterLastColon(arg, true); ok {
		return version, nil
	}
	return "", fmt.Errorf("%w: failed to extract version: %s", ErrFormat, arg)
}

// dereference maps a placeholder naming a local variable to that variable's value
func (p *scriptParser) dereference(version string) string {
	if value, ok := p.variables[version]; ok {
		return value
	}
	return version
}

func versionAfterLastColon(arg string, allowDollar bool) (string, bool) {
	tail := arg[strings.LastIndex(arg, ":")+1:]
	for _, part := range strings.Split(tail, "'") {
		part = stripPlaceholder(part)
		if allowDollar {
			part = strings.TrimPrefix(part, "$")
		}
		part = strings.ReplaceAll(part, "@aar", "")
		if versionToken.MatchString(part) {
			return part, true
		}
	}
	return "", false
}

// stripPlaceholder turns ${name} into name
func stripPlaceholder(part string) string {
	if strings.HasPrefix(part, "${") && strings.HasSuffix(part, "}") {
		return part[2 : len(part)-1]
	}
	return part
}

func textInQuotes(text string) (string, error) {
	start := strings.Index(text, "'")
	end := strings.LastIndex(text, "'")
	if start == -1 || end <= start {
		return "", fmt.Errorf("%w: no quoted text in: %s", ErrFormat, text)
	}
	return text[start+1 : end], nil
}

func textBetweenFirstQuotes(text string) (string, bool) {
	start := strings.Index(text, "'")
	if start == -1 {
		return "", false
	}
	end := strings.Index(text[start+1:], "'")
	if end == -1 {
		return "", false
	}
	return text[start+1 : start+1+end], true
}
