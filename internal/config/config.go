// Package config loads the .ccdeps.yaml configuration file and merges it
// with CCDEPS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	fileName  = ".ccdeps"
	fileType  = "yaml"
	envPrefix = "CCDEPS"
)

// Config is the file/environment configuration of an analysis run. Flags
// given on the command line take precedence over all of it.
type Config struct {
	// Platforms restricts evaluation to the listed os/arch pairs.
	Platforms []string `mapstructure:"platforms"`

	// Macros are extra definitions, NAME or NAME=value.
	Macros []string `mapstructure:"macros"`

	// GroupMode is "unit" or "directory".
	GroupMode string `mapstructure:"group_mode"`

	// CycleHandling is "merge" or "warn".
	CycleHandling string `mapstructure:"cycle_handling"`

	// Include and Exclude are doublestar patterns applied during loading.
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`

	// IncludePrefix and StripIncludePrefix adjust header include paths.
	IncludePrefix      string `mapstructure:"include_prefix"`
	StripIncludePrefix string `mapstructure:"strip_include_prefix"`

	// FailOnUnresolved makes the run exit non-zero when a quoted include
	// cannot be resolved within the analyzed sources.
	FailOnUnresolved bool `mapstructure:"fail_on_unresolved"`
}

// Load reads the configuration. When path is non-empty that file is used and
// must exist; otherwise .ccdeps.yaml is searched in root and a missing file
// yields the defaults.
func Load(root, path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType(fileType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("group_mode", "unit")
	v.SetDefault("cycle_handling", "merge")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fileName)
		if root == "" {
			root = "."
		}
		v.AddConfigPath(root)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			// No config file is fine, environment and defaults apply.
		} else {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if used := v.ConfigFileUsed(); used != "" {
		if err := validateFile(used); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// validateFile checks the config file against the embedded JSON schema and
// renders all issues into a single error.
func validateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	result, err := Validate(data)
	if err != nil {
		return fmt.Errorf("validating config %s: %w", path, err)
	}
	if result.Valid {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "invalid config %s:", path)
	for _, issue := range result.Issues {
		sb.WriteString("\n  ")
		if issue.Path != "" {
			sb.WriteString(issue.Path)
			sb.WriteString(": ")
		}
		sb.WriteString(issue.Message)
	}
	return errors.New(sb.String())
}
