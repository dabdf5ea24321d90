package gradle

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"gradlecp/pkg/report"
)

// ParseProperties reads key=value lines from a Gradle properties file
func ParseProperties(path string, r report.Reporter) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	properties := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			r.Debug("Skipping properties line", "file", path, "line", line)
			continue
		}
		value = strings.TrimSuffix(strings.TrimSpace(value), "@aar")
		properties[strings.TrimSpace(key)] = value
	}

	return properties, scanner.Err()
}

// ParseModuleDeclarations reads module declarations from a settings file.
// Recognized shapes are ':a:b' and '[relative/path]:name', alone on a line or
// as arguments of include.
func ParseModuleDeclarations(path string) ([]ModuleDeclaration, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	defer file.Close()

	var modules []ModuleDeclaration
	names := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.ReplaceAll(scanner.Text(), `"`, "'"))

		var candidates []string
		if rest, ok := strings.CutPrefix(line, "include"); ok && (strings.HasPrefix(rest, " ") || strings.HasPrefix(rest, "(")) {
			rest = strings.TrimSpace(strings.Trim(strings.TrimSpace(rest), "()"))
			for _, arg := range strings.Split(rest, ",") {
				candidates = append(candidates, strings.TrimSpace(arg))
			}
		} else {
			candidates = []string{line}
		}

		for _, candidate := range candidates {
			module, ok, err := parseModuleDeclaration(candidate)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if names[module.Name] {
				return nil, fmt.Errorf("%w: duplicate module name %q in %s", ErrConfig, module.Name, path)
			}
			names[module.Name] = true
			modules = append(modules, module)
		}
	}

	return modules, scanner.Err()
}

func parseModuleDeclaration(line string) (ModuleDeclaration, bool, error) {
	switch {
	case strings.HasPrefix(line, "':"):
		end := strings.Index(line[1:], "'")
		if end == -1 {
			return ModuleDeclaration{}, false, fmt.Errorf("%w: failed to parse module declaration: %s", ErrFormat, line)
		}
		name := strings.ReplaceAll(line[2:end+1], ":", "/")
		if name == "" {
			return ModuleDeclaration{}, false, fmt.Errorf("%w: empty module declaration: %s", ErrFormat, line)
		}
		return ModuleDeclaration{Name: name, Path: name}, true, nil

	case strings.HasPrefix(line, "'["):
		end := strings.Index(line[1:], "'")
		if end == -1 || !strings.Contains(line, "]:") {
			return ModuleDeclaration{}, false, fmt.Errorf("%w: failed to parse module declaration: %s", ErrFormat, line)
		}
		path := strings.ReplaceAll(line[2:end+1], "]:", "/")
		name := path
		if i := strings.LastIndex(path, "/"); i != -1 {
			name = path[i+1:]
		}
		if name == "" {
			return ModuleDeclaration{}, false, fmt.Errorf("%w: empty module declaration: %s", ErrFormat, line)
		}
		return ModuleDeclaration{Name: name, Path: path}, true, nil
	}
	return ModuleDeclaration{}, false, nil
}
