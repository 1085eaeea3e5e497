// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/staging/cmd/bureau-staging/cli"
	"github.com/bureau-foundation/staging/lib/config"
)

type templateEntry struct {
	Name               string   `json:"name"`
	Prefix             string   `json:"prefix"`
	RepositoryMode     string   `json:"repository_mode"`
	AllowRedeploy      bool     `json:"allow_redeploy"`
	ChecksumAlgorithms []string `json:"checksum_algorithms,omitempty"`
}

func templatesCommand() *cli.Command {
	var params struct {
		GlobalFlags
		cli.JSONOutput
	}
	return &cli.Command{
		Name:    "templates",
		Summary: "List the store templates",
		Description: `List the built-in templates and those added by the configuration
file. Templates without their own checksum list use checksum_algorithms.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("templates", &params) },
		Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
			cfg, err := params.loadConfig()
			if err != nil {
				return err
			}
			catalog, err := buildCatalog(cfg.Templates)
			if err != nil {
				return err
			}
			var entries []templateEntry
			for _, tmpl := range catalog.Templates() {
				algorithms, _ := tmpl.ChecksumAlgorithms()
				entries = append(entries, templateEntry{
					Name:               tmpl.Name(),
					Prefix:             tmpl.Prefix(),
					RepositoryMode:     string(tmpl.RepositoryMode()),
					AllowRedeploy:      tmpl.AllowRedeploy(),
					ChecksumAlgorithms: algorithms,
				})
			}
			if done, err := params.EmitJSON(entries); done {
				return err
			}
			writer := tabwriter.NewWriter(cli.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "NAME\tPREFIX\tMODE\tREDEPLOY\tCHECKSUMS")
			for _, entry := range entries {
				algorithms := strings.Join(entry.ChecksumAlgorithms, ",")
				if algorithms == "" {
					algorithms = "(default)"
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\t%v\t%s\n", entry.Name, entry.Prefix, entry.RepositoryMode, entry.AllowRedeploy, algorithms)
			}
			return writer.Flush()
		},
	}
}

func createCommand() *cli.Command {
	var params struct {
		GlobalFlags
		cli.JSONOutput
		Template string `flag:"template,t" desc:"template to create the store from" default:"release"`
	}
	return &cli.Command{
		Name:    "create",
		Summary: "Create an empty staging store",
		Usage:   "bureau-staging create [--template name] [flags]",
		Examples: []cli.Example{
			{Description: "Stage a snapshot deploy", Command: "bureau-staging create --template snapshot"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("create", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) (err error) {
			if err := requireArgs(args, 0, "bureau-staging create [--template name]"); err != nil {
				return err
			}
			env, err := params.open(logger)
			if err != nil {
				return err
			}
			defer func() { err = closeAll(err, env) }()

			tmpl, err := env.catalog.Get(params.Template)
			if err != nil {
				return err
			}
			store, err := env.manager.CreateArtifactStore(tmpl)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(map[string]string{"name": store.Name(), "path": store.Basedir()}); done {
				return err
			}
			fmt.Fprintln(cli.Stdout, store.Name())
			return nil
		},
	}
}

func listCommand() *cli.Command {
	var params struct {
		GlobalFlags
		cli.JSONOutput
		Prefix string `flag:"prefix" desc:"only stores created from templates with this prefix"`
	}
	return &cli.Command{
		Name:    "list",
		Summary: "List staging stores",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("list", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) (err error) {
			if err := requireArgs(args, 0, "bureau-staging list [--prefix p]"); err != nil {
				return err
			}
			env, err := params.open(logger)
			if err != nil {
				return err
			}
			defer func() { err = closeAll(err, env) }()

			var names []string
			if params.Prefix != "" {
				names, err = env.manager.ListArtifactStoreNamesForPrefix(params.Prefix)
			} else {
				names, err = env.manager.ListArtifactStoreNames()
			}
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(names); done {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cli.Stdout, name)
			}
			return nil
		},
	}
}

type storeSummary struct {
	Name           string    `json:"name"`
	Path           string    `json:"path"`
	Template       string    `json:"template"`
	Created        time.Time `json:"created"`
	RepositoryMode string    `json:"repository_mode"`
	WriteMode      string    `json:"write_mode"`
	Checksums      []string  `json:"checksum_algorithms"`
	Artifacts      []string  `json:"artifacts"`
	Metadata       []string  `json:"metadata"`
	Attachments    []string  `json:"attachments"`
}

func showCommand() *cli.Command {
	var params struct {
		GlobalFlags
		cli.JSONOutput
	}
	return &cli.Command{
		Name:    "show",
		Summary: "Describe a store and list its content",
		Usage:   "bureau-staging show <store> [flags]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("show", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) (err error) {
			if err := requireArgs(args, 1, "bureau-staging show <store>"); err != nil {
				return err
			}
			env, err := params.open(logger)
			if err != nil {
				return err
			}
			defer func() { err = closeAll(err, env) }()

			store, err := env.manager.SelectArtifactStoreReadOnly(args[0])
			if err != nil {
				return err
			}
			meta := store.Meta()
			summary := storeSummary{
				Name:           store.Name(),
				Path:           store.Basedir(),
				Template:       meta.TemplateName,
				Created:        store.Created(),
				RepositoryMode: string(store.RepositoryMode()),
				WriteMode:      store.WriteMode().String(),
				Checksums:      meta.ChecksumAlgorithms,
			}
			artifacts, err := store.Artifacts()
			if err != nil {
				return err
			}
			for _, artifact := range artifacts {
				summary.Artifacts = append(summary.Artifacts, artifact.String())
			}
			metadata, err := store.Metadata()
			if err != nil {
				return err
			}
			for _, entry := range metadata {
				summary.Metadata = append(summary.Metadata, entry.String())
			}
			if summary.Attachments, err = store.Attachments(); err != nil {
				return err
			}
			if done, err := params.EmitJSON(summary); done {
				return err
			}

			writer := tabwriter.NewWriter(cli.Stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintf(writer, "Name:\t%s\n", summary.Name)
			fmt.Fprintf(writer, "Path:\t%s\n", summary.Path)
			fmt.Fprintf(writer, "Template:\t%s\n", summary.Template)
			fmt.Fprintf(writer, "Created:\t%s\n", summary.Created.Format(time.RFC3339))
			fmt.Fprintf(writer, "Mode:\t%s, %s\n", summary.RepositoryMode, summary.WriteMode)
			fmt.Fprintf(writer, "Checksums:\t%s\n", strings.Join(summary.Checksums, ", "))
			writer.Flush()
			printSection("Artifacts", summary.Artifacts)
			printSection("Metadata", summary.Metadata)
			printSection("Attachments", summary.Attachments)
			return nil
		},
	}
}

func printSection(title string, entries []string) {
	fmt.Fprintf(cli.Stdout, "\n%s (%d):\n", title, len(entries))
	for _, entry := range entries {
		fmt.Fprintf(cli.Stdout, "  %s\n", entry)
	}
}

func dropCommand() *cli.Command {
	var params struct {
		GlobalFlags
		DryRun bool `flag:"dry-run" desc:"report what would be dropped without deleting"`
	}
	return &cli.Command{
		Name:    "drop",
		Summary: "Delete staging stores",
		Usage:   "bureau-staging drop <store>... [flags]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("drop", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) (err error) {
			if len(args) == 0 {
				return fmt.Errorf("at least one store name is required\n\nUsage: bureau-staging drop <store>...")
			}
			env, err := params.open(logger, func(cfg *config.Config) {
				cfg.DryRun = cfg.DryRun || params.DryRun
			})
			if err != nil {
				return err
			}
			defer func() { err = closeAll(err, env) }()

			missing := 0
			for _, name := range args {
				dropped, err := env.manager.DropArtifactStore(name)
				if err != nil {
					return err
				}
				switch {
				case !dropped:
					fmt.Fprintf(cli.Stdout, "%s: not found\n", name)
					missing++
				case env.config.DryRun:
					fmt.Fprintf(cli.Stdout, "%s: would drop\n", name)
				default:
					fmt.Fprintf(cli.Stdout, "%s: dropped\n", name)
				}
			}
			if missing > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func renumberCommand() *cli.Command {
	var params struct {
		GlobalFlags
		cli.JSONOutput
	}
	return &cli.Command{
		Name:    "renumber",
		Summary: "Close numbering gaps left by dropped stores",
		Description: `Renumber the stores of every template prefix so their numbers run
1..N in creation order, and reset the sequence mark so the next
store continues at N+1. Stores held open by other processes make
renumbering fail.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("renumber", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) (err error) {
			if err := requireArgs(args, 0, "bureau-staging renumber"); err != nil {
				return err
			}
			env, err := params.open(logger)
			if err != nil {
				return err
			}
			defer func() { err = closeAll(err, env) }()

			renames, err := env.manager.RenumberArtifactStores()
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(renames); done {
				return err
			}
			for _, rename := range renames {
				fmt.Fprintf(cli.Stdout, "%s -> %s\n", rename.From, rename.To)
			}
			return nil
		},
	}
}

func redeployCommand() *cli.Command {
	var params struct {
		GlobalFlags
		Merge bool `flag:"merge" desc:"merge instead of redeploy (not supported)"`
	}
	return &cli.Command{
		Name:    "redeploy",
		Summary: "Copy every artifact of one store into another",
		Usage:   "bureau-staging redeploy <source> <target> [flags]",
		Description: `Republish the artifacts and metadata of <source> into <target>
through an ordinary put. The target's template decides whether
existing artifacts may be overwritten. A failure part way leaves
the target partially populated.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("redeploy", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) (err error) {
			if err := requireArgs(args, 2, "bureau-staging redeploy <source> <target>"); err != nil {
				return err
			}
			env, err := params.open(logger)
			if err != nil {
				return err
			}
			defer func() { err = closeAll(err, env) }()

			source, err := env.manager.SelectArtifactStoreReadOnly(args[0])
			if err != nil {
				return err
			}
			target, err := env.manager.SelectArtifactStore(args[1])
			if err != nil {
				return err
			}
			if params.Merge {
				return env.manager.MergeArtifactStore(source, target)
			}
			return env.manager.RedeployArtifactStore(source, target)
		},
	}
}
