// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable Load reads.
const EnvVar = "BUREAU_STAGING_CONFIG"

// Config is the bureau-staging configuration.
type Config struct {
	// StoreRoot is the directory holding staging stores.
	// Default: ${HOME}/.cache/bureau-staging/stores
	StoreRoot string `yaml:"store_root"`

	// DryRun reports drops without deleting anything.
	DryRun bool `yaml:"dry_run"`

	// ChecksumAlgorithms is used by templates that do not name their
	// own. Default: SHA-1, MD5
	ChecksumAlgorithms []string `yaml:"checksum_algorithms"`

	// Templates are added to the built-in catalog.
	Templates []TemplateConfig `yaml:"templates"`

	Validation ValidationConfig `yaml:"validation"`
	Bundle     BundleConfig     `yaml:"bundle"`

	// LogLevel is one of debug, info, warn, error. Default: info
	LogLevel string `yaml:"log_level"`
}

// TemplateConfig describes one additional store template.
type TemplateConfig struct {
	Name           string `yaml:"name"`
	Prefix         string `yaml:"prefix"`
	RepositoryMode string `yaml:"repository_mode"`
	AllowRedeploy  bool   `yaml:"allow_redeploy"`

	// ChecksumAlgorithms overrides the fallback list when set.
	ChecksumAlgorithms []string `yaml:"checksum_algorithms"`

	// OmitChecksumsForExtensions overrides the default omit list when set.
	OmitChecksumsForExtensions []string `yaml:"omit_checksums_for_extensions"`
}

// ValidationConfig selects and tunes the validators run before publish.
type ValidationConfig struct {
	// MandatoryChecksums makes every store algorithm mandatory.
	// Default: true
	MandatoryChecksums bool `yaml:"mandatory_checksums"`

	// SignatureKeyring is an OpenPGP public keyring. Signature checks
	// are skipped when empty.
	SignatureKeyring string `yaml:"signature_keyring"`

	// MandatorySignatures lists signature extensions that must be
	// present, e.g. [asc].
	MandatorySignatures []string `yaml:"mandatory_signatures"`

	// POM enables the POM coordinate and completeness checks.
	// Default: true
	POM bool `yaml:"pom"`

	// POMRepositories are Maven2-layout directories searched for
	// parent POMs after the store itself.
	POMRepositories []string `yaml:"pom_repositories"`

	// Archives enables zip integrity checks of jar/war/ear/aar/zip.
	// Default: true
	Archives bool `yaml:"archives"`
}

// BundleConfig sets export and import defaults.
type BundleConfig struct {
	// Compression is zstd, deflate, lz4 or none. Default: zstd
	Compression string `yaml:"compression"`

	// Recipients are age public keys. When set, exports are encrypted.
	Recipients []string `yaml:"recipients"`

	// Identities are age identity files tried when opening encrypted
	// bundles.
	Identities []string `yaml:"identities"`
}

var (
	compressions = []string{"zstd", "deflate", "lz4", "none"}
	logLevels    = []string{"debug", "info", "warn", "error"}
)

// Default returns the configuration used when no file is given, and
// the base every file is decoded over.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		StoreRoot:          filepath.Join(homeDir, ".cache", "bureau-staging", "stores"),
		ChecksumAlgorithms: []string{"SHA-1", "MD5"},
		Validation: ValidationConfig{
			MandatoryChecksums: true,
			POM:                true,
			Archives:           true,
		},
		Bundle: BundleConfig{
			Compression: "zstd",
		},
		LogLevel: "info",
	}
}

// Load loads configuration from the file named by BUREAU_STAGING_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your staging config file, or use --config flag", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path and expands path variables.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

// Parse decodes data over Default. The name selects the format by
// extension and appears in error messages; it does not have to exist.
func Parse(data []byte, name string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".jsonc":
		// JSON is a YAML subset, so one set of field tags serves both.
		data = jsonc.ToJSON(data)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.StoreRoot = expandVars(c.StoreRoot, vars)
	vars["BUREAU_STAGING_ROOT"] = c.StoreRoot

	c.Validation.SignatureKeyring = expandVars(c.Validation.SignatureKeyring, vars)
	for i, repository := range c.Validation.POMRepositories {
		c.Validation.POMRepositories[i] = expandVars(repository, vars)
	}
	for i, identity := range c.Bundle.Identities {
		c.Bundle.Identities[i] = expandVars(identity, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]

		// Provided vars first, then the environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if c.StoreRoot == "" {
		errs = append(errs, errors.New("store_root is required"))
	}
	if len(c.ChecksumAlgorithms) == 0 {
		errs = append(errs, errors.New("checksum_algorithms must name at least one algorithm"))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("log_level must be one of: %v", logLevels))
	}
	if c.Bundle.Compression != "" && !slices.Contains(compressions, strings.ToLower(c.Bundle.Compression)) {
		errs = append(errs, fmt.Errorf("bundle.compression must be one of: %v", compressions))
	}

	seen := make(map[string]bool)
	for i, tmpl := range c.Templates {
		field := fmt.Sprintf("templates[%d]", i)
		if tmpl.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", field))
		} else if seen[tmpl.Name] {
			errs = append(errs, fmt.Errorf("%s.name %q is repeated", field, tmpl.Name))
		}
		seen[tmpl.Name] = true
		switch strings.ToUpper(tmpl.RepositoryMode) {
		case "RELEASE", "SNAPSHOT":
		default:
			errs = append(errs, fmt.Errorf("%s.repository_mode must be RELEASE or SNAPSHOT, got %q", field, tmpl.RepositoryMode))
		}
	}

	return errors.Join(errs...)
}

// EnsurePaths creates the store root if it does not exist.
func (c *Config) EnsurePaths() error {
	if err := os.MkdirAll(c.StoreRoot, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", c.StoreRoot, err)
	}
	return nil
}
