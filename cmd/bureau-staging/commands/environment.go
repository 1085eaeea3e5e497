// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bureau-foundation/staging/cmd/bureau-staging/cli"
	"github.com/bureau-foundation/staging/lib/checksum"
	"github.com/bureau-foundation/staging/lib/config"
	"github.com/bureau-foundation/staging/lib/pom"
	"github.com/bureau-foundation/staging/lib/signature"
	"github.com/bureau-foundation/staging/lib/stagemanager"
	"github.com/bureau-foundation/staging/lib/template"
	"github.com/bureau-foundation/staging/lib/validate"
)

// GlobalFlags are accepted by every command that touches stores.
type GlobalFlags struct {
	Config  string `flag:"config" desc:"configuration file (default: $BUREAU_STAGING_CONFIG, else built-in defaults)"`
	Root    string `flag:"root" desc:"store root directory, overriding store_root"`
	Verbose bool   `flag:"verbose,v" desc:"log at debug level"`
}

// environment is what a command needs after startup: the loaded
// configuration, the template catalog and an open manager.
type environment struct {
	config  *config.Config
	catalog *template.Catalog
	manager *stagemanager.Manager
	logger  *slog.Logger
}

// loadConfig reads --config, then BUREAU_STAGING_CONFIG, then falls
// back to defaults.
func (g GlobalFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case g.Config != "":
		cfg, err = config.LoadFile(g.Config)
	case os.Getenv(config.EnvVar) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if g.Root != "" {
		cfg.StoreRoot = g.Root
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// open loads configuration, applies adjust functions, and starts a
// manager. Callers must Close the environment.
func (g GlobalFlags) open(logger *slog.Logger, adjust ...func(*config.Config)) (*environment, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	for _, apply := range adjust {
		apply(cfg)
	}
	level, err := cli.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if g.Verbose {
		level = slog.LevelDebug
	}
	cli.LogLevel.Set(level)

	catalog, err := buildCatalog(cfg.Templates)
	if err != nil {
		return nil, err
	}
	manager, err := stagemanager.New(stagemanager.Config{
		Root:                       cfg.StoreRoot,
		Catalog:                    catalog,
		FallbackChecksumAlgorithms: cfg.ChecksumAlgorithms,
		DryRun:                     cfg.DryRun,
		Logger:                     logger,
	})
	if err != nil {
		return nil, err
	}
	return &environment{config: cfg, catalog: catalog, manager: manager, logger: logger}, nil
}

func (e *environment) Close() error {
	return e.manager.Close()
}

// buildCatalog adds configured templates to the built-in ones.
func buildCatalog(templates []config.TemplateConfig) (*template.Catalog, error) {
	catalog := template.DefaultCatalog()
	for _, entry := range templates {
		tmpl, err := template.New(template.Spec{
			Name:                   entry.Name,
			Prefix:                 entry.Prefix,
			RepositoryMode:         template.RepositoryMode(entry.RepositoryMode),
			AllowRedeploy:          entry.AllowRedeploy,
			ChecksumAlgorithms:     entry.ChecksumAlgorithms,
			OmitChecksumExtensions: entry.OmitChecksumsForExtensions,
		})
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", entry.Name, err)
		}
		if err := catalog.Add(tmpl); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// validators builds the configured validator set and selects only,
// or everything when only is empty.
func (e *environment) validators(only []string) ([]validate.Validator, error) {
	settings := e.config.Validation
	var mandatory []string
	if settings.MandatoryChecksums {
		mandatory = checksum.Default().Names()
	}

	var signatures *signature.Registry
	if settings.SignatureKeyring != "" {
		keyring, err := signature.LoadKeyring(settings.SignatureKeyring)
		if err != nil {
			return nil, err
		}
		signatures = signature.OpenPGP(keyring)
	}

	registry, err := validate.NewRegistry(validate.NewChecksum(validate.Checksum{
		Mandatory:  mandatory,
		Signatures: signatures,
	}))
	if err != nil {
		return nil, err
	}
	var optional []validate.Validator
	if signatures != nil {
		optional = append(optional, validate.NewSignature(validate.Signature{
			Registry:  signatures,
			Mandatory: settings.MandatorySignatures,
		}))
	}
	if settings.POM {
		var repositories []pom.Repository
		for _, directory := range settings.POMRepositories {
			repositories = append(repositories, pom.DirectoryRepository{Root: directory})
		}
		provider := pom.InheritingProvider{}
		optional = append(optional,
			validate.NewPOMCoordinates(validate.POMCoordinates{Provider: provider, Repositories: repositories}),
			validate.NewPOMCompleteness(validate.POMCompleteness{Provider: provider, Repositories: repositories}),
		)
	}
	if settings.Archives {
		optional = append(optional, validate.NewArchive())
	}
	for _, validator := range optional {
		if err := registry.Register(validator); err != nil {
			return nil, err
		}
	}
	return registry.Select(only)
}

// requireArgs checks the positional argument count.
func requireArgs(args []string, want int, usage string) error {
	if len(args) != want {
		return fmt.Errorf("expected %d argument(s), got %d\n\nUsage: %s", want, len(args), usage)
	}
	return nil
}

// closeAll joins the close errors of an environment and whatever the
// command returned.
func closeAll(err error, env *environment) error {
	return errors.Join(err, env.Close())
}

// parseAssignment splits "coordinate=path".
func parseAssignment(text string) (string, string, error) {
	coordinate, path, ok := strings.Cut(text, "=")
	if !ok || coordinate == "" || path == "" {
		return "", "", fmt.Errorf("%q: want coordinate=path", text)
	}
	return coordinate, path, nil
}
