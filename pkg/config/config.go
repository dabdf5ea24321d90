package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up in the project hierarchy
const FileName = "gradlecp.toml"

// Config is the merged configuration of every gradlecp.toml found from the
// project directory up to the filesystem root.
type Config struct {
	AndroidSDK     string            `toml:"android_sdk"`
	GradleHome     string            `toml:"gradle_home"`
	Strategy       string            `toml:"strategy"`
	VersionOrder   string            `toml:"version_order"`
	AliasMode      string            `toml:"alias_mode"`
	AliasDir       string            `toml:"alias_dir"`
	OutputDir      string            `toml:"output_dir"`
	Lister         string            `toml:"lister"`
	PropertiesFile string            `toml:"properties_file"`
	SettingsFile   string            `toml:"settings_file"`
	Parallel       int               `toml:"parallel"`
	IgnoredModules []string          `toml:"ignored_modules"`
	IgnoredLibs    []string          `toml:"ignored_libs"`
	MappedModules  map[string]string `toml:"mapped_modules"`
}

// FieldError reports one invalid configuration field
type FieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config field %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("config field %s = %q: %s", e.Field, e.Value, e.Reason)
}

// Default returns the configuration used when no file sets a field
func Default() *Config {
	return &Config{
		Strategy:       "pom",
		VersionOrder:   "lexical",
		AliasMode:      "canonical",
		AliasDir:       ".gradlecp",
		OutputDir:      filepath.Join("build", "gradlecp"),
		Lister:         "walk",
		PropertiesFile: "gradle.properties",
		SettingsFile:   "settings.gradle",
		MappedModules:  make(map[string]string),
	}
}

// LoadConfiguration loads and merges all gradlecp.toml files from the directory hierarchy
func LoadConfiguration(startDir string) (*Config, error) {
	config := Default()

	// Walk up the directory hierarchy looking for config files
	currentDir := startDir
	var configFiles []string

	for {
		configPath := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			configFiles = append(configFiles, configPath)
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	// Root to leaf, so leaf configs override parent configs
	for i := len(configFiles) - 1; i >= 0; i-- {
		if err := config.mergeConfigFile(configFiles[i]); err != nil {
			return nil, fmt.Errorf("failed to merge config file %s: %w", configFiles[i], err)
		}
	}

	config.applyEnvironment()
	return config, nil
}

// mergeConfigFile overlays the keys defined in a single file
func (c *Config) mergeConfigFile(configPath string) error {
	var fileConfig Config
	meta, err := toml.DecodeFile(configPath, &fileConfig)
	if err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return &FieldError{Field: undecoded[0].String(), Reason: "unknown key"}
	}

	if meta.IsDefined("android_sdk") {
		c.AndroidSDK = fileConfig.AndroidSDK
	}
	if meta.IsDefined("gradle_home") {
		c.GradleHome = fileConfig.GradleHome
	}
	if meta.IsDefined("strategy") {
		c.Strategy = fileConfig.Strategy
	}
	if meta.IsDefined("version_order") {
		c.VersionOrder = fileConfig.VersionOrder
	}
	if meta.IsDefined("alias_mode") {
		c.AliasMode = fileConfig.AliasMode
	}
	if meta.IsDefined("alias_dir") {
		c.AliasDir = fileConfig.AliasDir
	}
	if meta.IsDefined("output_dir") {
		c.OutputDir = fileConfig.OutputDir
	}
	if meta.IsDefined("lister") {
		c.Lister = fileConfig.Lister
	}
	if meta.IsDefined("properties_file") {
		c.PropertiesFile = fileConfig.PropertiesFile
	}
	if meta.IsDefined("settings_file") {
		c.SettingsFile = fileConfig.SettingsFile
	}
	if meta.IsDefined("parallel") {
		c.Parallel = fileConfig.Parallel
	}
	if meta.IsDefined("ignored_modules") {
		c.IgnoredModules = fileConfig.IgnoredModules
	}
	if meta.IsDefined("ignored_libs") {
		c.IgnoredLibs = fileConfig.IgnoredLibs
	}
	for from, to := range fileConfig.MappedModules {
		c.MappedModules[from] = to
	}

	return nil
}

// applyEnvironment fills paths that no file configured
func (c *Config) applyEnvironment() {
	if c.AndroidSDK == "" {
		for _, name := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
			if value := os.Getenv(name); value != "" {
				c.AndroidSDK = value
				break
			}
		}
	}
	if c.GradleHome == "" {
		if value := os.Getenv("GRADLE_USER_HOME"); value != "" {
			c.GradleHome = value
		} else if home, err := os.UserHomeDir(); err == nil {
			c.GradleHome = filepath.Join(home, ".gradle")
		}
	}
	c.AndroidSDK = expandHome(c.AndroidSDK)
	c.GradleHome = expandHome(c.GradleHome)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate checks every field and returns all problems joined together
func (c *Config) Validate() error {
	var errs []error

	oneOf := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, &FieldError{
			Field:  field,
			Value:  value,
			Reason: "must be one of " + strings.Join(allowed, ", "),
		})
	}
	required := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, &FieldError{Field: field, Reason: "must not be empty"})
		}
	}

	oneOf("strategy", c.Strategy, "pom", "metadata")
	oneOf("version_order", c.VersionOrder, "lexical", "semantic")
	oneOf("alias_mode", c.AliasMode, "canonical", "symlink", "none")
	oneOf("lister", c.Lister, "walk", "find")
	required("gradle_home", c.GradleHome)
	required("output_dir", c.OutputDir)
	required("properties_file", c.PropertiesFile)
	required("settings_file", c.SettingsFile)
	if c.AliasMode == "symlink" {
		required("alias_dir", c.AliasDir)
	}
	if c.Parallel < 0 {
		errs = append(errs, &FieldError{Field: "parallel", Value: fmt.Sprint(c.Parallel), Reason: "must not be negative"})
	}
	for from, to := range c.MappedModules {
		if from == "" || to == "" {
			errs = append(errs, &FieldError{Field: "mapped_modules", Value: from + "=" + to, Reason: "module names must not be empty"})
		}
	}

	return errors.Join(errs...)
}
