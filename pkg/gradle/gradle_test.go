package gradle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gradlecp/pkg/report"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestParseProperties(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "gradle.properties")
	writeFile(t, path, `
# versions
library_a.version=123
library_b.version = 2.1
library_c.version=3.2.1@aar
org.gradle.jvmargs=-Xmx2048m -Dfile.encoding=UTF-8
not a property line
`)

	props, err := ParseProperties(path, report.Nop())
	if err != nil {
		t.Fatalf("ParseProperties failed: %v", err)
	}

	want := map[string]string{
		"library_a.version":  "123",
		"library_b.version":  "2.1",
		"library_c.version":  "3.2.1",
		"org.gradle.jvmargs": "-Xmx2048m -Dfile.encoding=UTF-8",
	}
	if diff := cmp.Diff(want, props); diff != "" {
		t.Errorf("Properties mismatch (-want +got):\n%s", diff)
	}
}

func TestParseModuleDeclarations(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "settings.gradle")
	writeFile(t, path, `
rootProject.name = 'sample'
':module-1',
':module-2'
'[common]:module-6'
'[common/debug]:module-7'
include ':feature:login', ":feature:home"
// ':commented' is still a recognized shape only at line start
`)

	modules, err := ParseModuleDeclarations(path)
	if err != nil {
		t.Fatalf("ParseModuleDeclarations failed: %v", err)
	}

	want := []ModuleDeclaration{
		{Name: "module-1", Path: "module-1"},
		{Name: "module-2", Path: "module-2"},
		{Name: "module-6", Path: "common/module-6"},
		{Name: "module-7", Path: "common/debug/module-7"},
		{Name: "feature/login", Path: "feature/login"},
		{Name: "feature/home", Path: "feature/home"},
	}
	if diff := cmp.Diff(want, modules); diff != "" {
		t.Errorf("Declarations mismatch (-want +got):\n%s", diff)
	}
}

func TestParseModuleDeclarations_Errors(t *testing.T) {
	tests := map[string]string{
		"duplicate": "':app'\n':app'\n",
		"malformed": "':app\n",
		"bracket":   "'[libs/core\n",
	}
	for name, content := range tests {
		path := filepath.Join(t.TempDir(), "settings.gradle")
		writeFile(t, path, content)

		_, err := ParseModuleDeclarations(path)
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if name == "duplicate" && !errors.Is(err, ErrConfig) {
			t.Errorf("%s: expected ErrConfig, got %v", name, err)
		}
		if name != "duplicate" && !errors.Is(err, ErrFormat) {
			t.Errorf("%s: expected ErrFormat, got %v", name, err)
		}
	}
}

const moduleScript = `
apply plugin: 'com.android.library'

project.ext.supportVersion = '28.0.0'
def okhttpVersion = rootProject.property('okhttp_version')

android {
    compileSdkVersion 31
    apiLevel 21
}

dependencies {
    implementation fileTree(dir: 'libs', include: ['*.jar'])
    implementation files('libs/some-library-2.1.0.jar')
    api files("libs/some-library-2.1.0.jar")

    implementation project(':module-2')
    api project(":common:module-6")
    debugImplementation project(':module-4')
    compileOnly project(':module-5')
    testImplementation project(':module-2')
    androidTestImplementation project(':module-3')

    implementation 'com.squareup.okhttp3:okhttp:4.9.1'
    implementation "com.squareup.retrofit2:retrofit:${retrofit_version}"
    api 'com.example:lib:$lib.version@aar'
    implementation "com.squareup.okhttp3:logging-interceptor:$okhttpVersion"
    implementation "com.android.support:appcompat-v7:${project.ext.supportVersion}"
    implementation 'com.google.android.gms:play-services-base'
    implementation group: 'io.reactivex', name: 'rxjava', version: '2.2.21'
    implementation "com.google.dagger:dagger:${rootProject.ext.get('dagger_version')}"
    implementation 'com.mikepenz:fastadapter-commons:5.0.0:all'
    testImplementation 'junit:junit:4.13.2'
    androidTestImplementation 'androidx.test:runner:1.4.0'
    implementation libs.kotlin.stdlib
    kapt 'com.google.dagger:dagger-compiler:2.40'
    implementationClass = 'x'
}
`

func TestParseModuleBuildScript(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "module-1", BuildFileName), moduleScript)

	props := map[string]string{}
	script, err := ParseModuleBuildScript(root, "module-1", props, report.Nop())
	if err != nil {
		t.Fatalf("ParseModuleBuildScript failed: %v", err)
	}

	want := []Dependency{
		Files("module-1", "libs/some-library-2.1.0.jar", Implementation),
		Files("module-1", "libs/some-library-2.1.0.jar", API),
		ProjectDependency("module-2", Implementation),
		ProjectDependency("common/module-6", API),
		ProjectDependency("module-4", DebugImplementation),
		ProjectDependency("module-5", CompileOnly),
		ProjectDependency("module-2", TestImplementation),
		ProjectDependency("module-3", AndroidTestImplementation),
		Library("com.squareup.okhttp3:okhttp", "4.9.1", Implementation),
		Library("com.squareup.retrofit2:retrofit", "retrofit_version", Implementation),
		Library("com.example:lib", "lib.version", API),
		Library("com.squareup.okhttp3:logging-interceptor", "okhttp_version", Implementation),
		Library("com.android.support:appcompat-v7", "project.ext.supportVersion", Implementation),
		Library("com.google.android.gms:play-services-base", "", Implementation),
		Library("io.reactivex:rxjava", "2.2.21", Implementation),
		Library("com.google.dagger:dagger", "dagger_version", Implementation),
		Library("com.mikepenz:fastadapter-commons", "5.0.0", Implementation),
		Library("junit:junit", "4.13.2", TestImplementation),
		Library("androidx.test:runner", "1.4.0", AndroidTestImplementation),
	}
	if diff := cmp.Diff(want, script.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}

	if props["project.ext.supportVersion"] != "28.0.0" {
		t.Errorf("Expected project.ext property to be recorded, got %v", props)
	}

	wantSkipped := []string{
		"apply plugin: 'com.android.library'",
		"android {",
		"compileSdkVersion 31",
		"apiLevel 21",
		"}",
		"dependencies {",
		"implementation fileTree(dir: 'libs', include: ['*.jar'])",
		"implementation libs.kotlin.stdlib",
		"kapt 'com.google.dagger:dagger-compiler:2.40'",
		"}",
	}
	if diff := cmp.Diff(wantSkipped, script.Skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestParseModuleBuildScript_FormatErrors(t *testing.T) {
	tests := map[string]string{
		"named without version":   "implementation group: 'a', name: 'b'\n",
		"files with extra quotes": "implementation files('a', 'b')\n",
		"no version":              "implementation 'com.example:lib:+!'\n",
		"bad property":            "project.ext.a = b = c\n",
	}
	for name, content := range tests {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "m", BuildFileName), content)

		_, err := ParseModuleBuildScript(root, "m", map[string]string{}, report.Nop())
		if !errors.Is(err, ErrFormat) {
			t.Errorf("%s: expected ErrFormat, got %v", name, err)
		}
	}
}

func TestCollapse(t *testing.T) {
	if got := collapse("  implementation project (':a') "); got != "implementationproject':a')" {
		t.Errorf("Unexpected collapse result %q", got)
	}
}

func TestDependencyPatterns_ApiLevelExcluded(t *testing.T) {
	p := &scriptParser{variables: map[string]string{}}
	if _, ok, err := p.match("apiLevel 21"); ok || err != nil {
		t.Errorf("Expected apiLevel to be unmatched, got ok=%v err=%v", ok, err)
	}
	dep, ok, err := p.match("api 'a:b:1.0'")
	if err != nil || !ok {
		t.Fatalf("Expected api library to match, got ok=%v err=%v", ok, err)
	}
	if dep != Library("a:b", "1.0", API) {
		t.Errorf("Unexpected dependency %v", dep)
	}
}

func setupProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		writeFile(t, filepath.Join(root, path), content)
	}
	return root
}

var defaultOptions = LoadOptions{
	PropertiesFile: "gradle.properties",
	SettingsFile:   "settings.gradle",
}

func TestLoadProject(t *testing.T) {
	root := setupProject(t, map[string]string{
		"gradle.properties": "lib.version=1.2.3\n",
		"settings.gradle":   "':app'\n':core'\n':legacy'\n",
		"app/build.gradle": `
implementation project(':core')
implementation project(':old-core')
implementation project(':legacy')
implementation 'com.example:lib:$lib.version'
implementation 'com.google.firebase:firebase-bom:28.0.0'
`,
		"core/build.gradle":   "project.ext.coreVersion = '9.9'\n",
		"legacy/build.gradle": "this is not parsed\n",
	})

	opts := defaultOptions
	opts.IgnoredModules = []string{"legacy"}
	opts.IgnoredLibs = []string{"com.google.firebase:firebase-bom"}
	opts.MappedModules = map[string]string{"old-core": "core"}

	project, err := LoadProject(root, opts, report.Nop())
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}

	wantModules := []ModuleDeclaration{{Name: "app", Path: "app"}, {Name: "core", Path: "core"}}
	if diff := cmp.Diff(wantModules, project.Modules); diff != "" {
		t.Errorf("Modules mismatch (-want +got):\n%s", diff)
	}

	wantDeps := []Dependency{
		ProjectDependency("core", Implementation),
		Library("com.example:lib", "lib.version", Implementation),
	}
	if diff := cmp.Diff(wantDeps, project.Dependencies["app"]); diff != "" {
		t.Errorf("App dependencies mismatch (-want +got):\n%s", diff)
	}

	if project.Properties["lib.version"] != "1.2.3" || project.Properties["project.ext.coreVersion"] != "9.9" {
		t.Errorf("Unexpected properties %v", project.Properties)
	}

	graph, err := project.ModuleGraph()
	if err != nil {
		t.Fatalf("ModuleGraph failed: %v", err)
	}
	wantGraph := map[string][]string{"app": {"core"}, "core": nil}
	if diff := cmp.Diff(wantGraph, graph); diff != "" {
		t.Errorf("Graph mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadProject_ConfigErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"missing build script": {
			"settings.gradle": "':app'\n",
		},
		"undeclared module": {
			"settings.gradle":  "':app'\n",
			"app/build.gradle": "implementation project(':missing')\n",
		},
		"missing settings": {
			"app/build.gradle": "",
		},
	}
	for name, files := range tests {
		root := setupProject(t, files)
		_, err := LoadProject(root, defaultOptions, report.Nop())
		if !errors.Is(err, ErrConfig) {
			t.Errorf("%s: expected ErrConfig, got %v", name, err)
		}
	}
}

func TestTransitiveDependencies(t *testing.T) {
	tests := []struct {
		name    string
		scripts map[string]string
		want    []string
	}{
		{
			name: "api chain stops at implementation",
			scripts: map[string]string{
				"app": "implementation project(':m1')\n",
				"m1":  "api project(':m2')\n",
				"m2":  "implementation project(':m3')\nimplementation project(':m4')\napi project(':m5')\n",
				"m3":  "", "m4": "", "m5": "",
			},
			want: []string{"m1", "m2", "m5"},
		},
		{
			name: "implementation only",
			scripts: map[string]string{
				"app": "implementation project(':m1')\n",
				"m1":  "implementation project(':m2')\n",
				"m2":  "implementation project(':m3')\n",
				"m3":  "",
			},
			want: []string{"m1"},
		},
		{
			name: "api all the way",
			scripts: map[string]string{
				"app": "api project(':m1')\n",
				"m1":  "api project(':m2')\n",
				"m2":  "api project(':m3')\n",
				"m3":  "",
			},
			want: []string{"m1", "m2", "m3"},
		},
		{
			name: "compileOnly does not propagate",
			scripts: map[string]string{
				"app": "implementation project(':m1')\n",
				"m1":  "compileOnly project(':m2')\n",
				"m2":  "",
			},
			want: []string{"m1"},
		},
		{
			name: "api cycle terminates",
			scripts: map[string]string{
				"app": "implementation project(':m1')\n",
				"m1":  "api project(':m2')\n",
				"m2":  "api project(':m1')\n",
			},
			want: []string{"m1", "m2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := map[string]string{}
			settings := ""
			for module, script := range tt.scripts {
				settings += "':" + module + "'\n"
				files[module+"/build.gradle"] = script
			}
			files["settings.gradle"] = settings
			root := setupProject(t, files)

			project, err := LoadProject(root, defaultOptions, report.Nop())
			if err != nil {
				t.Fatalf("LoadProject failed: %v", err)
			}
			deps, err := project.TransitiveDependencies("app")
			if err != nil {
				t.Fatalf("TransitiveDependencies failed: %v", err)
			}

			var got []string
			for _, dep := range deps {
				if dep.Relation != Implementation {
					t.Errorf("Expected flattened relation, got %s", dep.Relation)
				}
				got = append(got, dep.ModuleName)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Transitive modules mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTransitiveDependencies_UnknownModule(t *testing.T) {
	project := &Project{Dependencies: map[string][]Dependency{}}
	if _, err := project.TransitiveDependencies("nope"); !errors.Is(err, ErrConfig) {
		t.Errorf("Expected ErrConfig, got %v", err)
	}
}
