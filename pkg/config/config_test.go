package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func TestLoadConfiguration_MergesRootToLeaf(t *testing.T) {
	t.Setenv("GRADLE_USER_HOME", "/tmp/gradle-home")
	t.Setenv("ANDROID_HOME", "")
	t.Setenv("ANDROID_SDK_ROOT", "")

	tempDir := t.TempDir()
	projectDir := filepath.Join(tempDir, "workspace", "project")

	writeConfig(t, tempDir, `
android_sdk = "/opt/sdk"
strategy = "metadata"
ignored_libs = ["com.google.firebase:firebase-bom"]

[mapped_modules]
"legacy/core" = "core"
`)
	writeConfig(t, projectDir, `
strategy = "pom"
parallel = 4

[mapped_modules]
"old" = "new"
`)

	cfg, err := LoadConfiguration(projectDir)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}

	if cfg.AndroidSDK != "/opt/sdk" {
		t.Errorf("Expected parent android_sdk, got %q", cfg.AndroidSDK)
	}
	if cfg.Strategy != "pom" {
		t.Errorf("Expected leaf strategy pom, got %q", cfg.Strategy)
	}
	if cfg.Parallel != 4 {
		t.Errorf("Expected parallel 4, got %d", cfg.Parallel)
	}
	if cfg.GradleHome != "/tmp/gradle-home" {
		t.Errorf("Expected gradle home from environment, got %q", cfg.GradleHome)
	}
	if diff := cmp.Diff([]string{"com.google.firebase:firebase-bom"}, cfg.IgnoredLibs); diff != "" {
		t.Errorf("IgnoredLibs mismatch (-want +got):\n%s", diff)
	}
	want := map[string]string{"legacy/core": "core", "old": "new"}
	if diff := cmp.Diff(want, cfg.MappedModules); diff != "" {
		t.Errorf("MappedModules mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestLoadConfiguration_Defaults(t *testing.T) {
	t.Setenv("GRADLE_USER_HOME", "/tmp/gradle-home")

	cfg, err := LoadConfiguration(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	if cfg.Strategy != "pom" || cfg.VersionOrder != "lexical" || cfg.Lister != "walk" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.SettingsFile != "settings.gradle" || cfg.PropertiesFile != "gradle.properties" {
		t.Errorf("Unexpected default file names: %+v", cfg)
	}
}

func TestLoadConfiguration_UnknownKey(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `strategi = "pom"`)

	_, err := LoadConfiguration(dir)
	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("Expected FieldError, got %v", err)
	}
	if fieldErr.Field != "strategi" {
		t.Errorf("Expected field strategi, got %q", fieldErr.Field)
	}
}

func TestValidate_ReportsEveryField(t *testing.T) {
	cfg := Default()
	cfg.GradleHome = "/tmp/gradle"
	cfg.Strategy = "maven"
	cfg.Lister = "ls"
	cfg.Parallel = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}

	var fields []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var fieldErr *FieldError
		if errors.As(e, &fieldErr) {
			fields = append(fields, fieldErr.Field)
		}
	}
	if diff := cmp.Diff([]string{"strategy", "lister", "parallel"}, fields); diff != "" {
		t.Errorf("Invalid fields mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/.gradle"); got != filepath.Join(home, ".gradle") {
		t.Errorf("Expected expanded path, got %q", got)
	}
	if got := expandHome("/abs"); got != "/abs" {
		t.Errorf("Expected unchanged path, got %q", got)
	}
}
