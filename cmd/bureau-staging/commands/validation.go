// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/staging/cmd/bureau-staging/cli"
	"github.com/bureau-foundation/staging/lib/fileops"
	"github.com/bureau-foundation/staging/lib/publish"
	"github.com/bureau-foundation/staging/lib/report"
	"github.com/bureau-foundation/staging/lib/validate"
)

// ReportFlags choose how a validation result is rendered.
type ReportFlags struct {
	Only   []string `flag:"only" desc:"run only these validators (repeatable; default all)"`
	Format string   `flag:"format,f" desc:"report format: text, markdown, html, or json" default:"text"`
	Color  string   `flag:"color" desc:"colour text reports: auto, always, or never" default:"auto"`
}

func (r ReportFlags) options(title string) (report.Format, report.Options, error) {
	format, err := report.ParseFormat(r.Format)
	if err != nil {
		return "", report.Options{}, err
	}
	options := report.Options{Title: title}
	switch r.Color {
	case "always":
		options.Color = true
	case "never":
	case "auto", "":
		file, ok := cli.Stdout.(*os.File)
		options.Color = ok && cli.IsTerminal(file)
	default:
		return "", report.Options{}, fmt.Errorf("--color: unknown mode %q (want auto, always, or never)", r.Color)
	}
	return format, options, nil
}

func validateCommand() *cli.Command {
	var params struct {
		GlobalFlags
		ReportFlags
		Output string `flag:"output,o" desc:"write the report to this file instead of stdout"`
		Attach string `flag:"attach" desc:"also store the report as this attachment"`
	}
	return &cli.Command{
		Name:    "validate",
		Summary: "Run the validators over a store",
		Usage:   "bureau-staging validate <store> [flags]",
		Description: `Run every configured validator (or those named by --only) and print
the result tree. Exits 1 when any error was found. Warnings alone
leave the store valid.

Validators: checksum, signature (when a keyring is configured),
pom-coordinates, pom-completeness, archive.`,
		Examples: []cli.Example{
			{Description: "Check only checksums", Command: "bureau-staging validate release-1 --only checksum"},
			{Description: "Render HTML and keep it with the store", Command: "bureau-staging validate release-1 --format html --attach validation.html -o report.html"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("validate", &params) },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			if err := requireArgs(args, 1, "bureau-staging validate <store>"); err != nil {
				return err
			}
			format, options, err := params.options("")
			if err != nil {
				return err
			}
			if params.Output != "" || params.Attach != "" {
				options.Color = false
			}
			env, err := params.open(logger)
			if err != nil {
				return err
			}
			defer func() { err = closeAll(err, env) }()

			validators, err := env.validators(params.Only)
			if err != nil {
				return err
			}
			selectStore := env.manager.SelectArtifactStoreReadOnly
			if params.Attach != "" {
				selectStore = env.manager.SelectArtifactStore
			}
			store, err := selectStore(args[0])
			if err != nil {
				return err
			}
			result, err := validate.Composite{Validators: validators}.Validate(ctx, store)
			if err != nil {
				return err
			}

			var rendered bytes.Buffer
			if err := report.Write(&rendered, result, format, options); err != nil {
				return err
			}
			if params.Output != "" {
				err = fileops.WriteFile(params.Output, rendered.Bytes(), 0o644)
			} else {
				_, err = cli.Stdout.Write(rendered.Bytes())
			}
			if err != nil {
				return err
			}
			if params.Attach != "" {
				attachment, err := store.ManageAttachment(params.Attach)
				if err != nil {
					return err
				}
				if err := attachment.Write(bytes.NewReader(rendered.Bytes())); err != nil {
					attachment.Cancel()
					return errors.Join(err, attachment.Close())
				}
				if err := attachment.Close(); err != nil {
					return err
				}
			}
			if !result.IsValid() {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func publishCommand() *cli.Command {
	var params struct {
		GlobalFlags
		ReportFlags
		To string `flag:"to" desc:"Maven2 repository directory to publish into (required)"`
	}
	return &cli.Command{
		Name:    "publish",
		Summary: "Validate a store and copy it into a repository directory",
		Usage:   "bureau-staging publish <store> --to <directory> [flags]",
		Description: `Validate the store and, only if it is valid, copy its indexed
artifacts, metadata and checksum sidecars into the directory. A
rejected store prints its report and exits 1. Artifacts already
present in the directory are refused unless the store's template
allows redeploy.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("publish", &params) },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			if err := requireArgs(args, 1, "bureau-staging publish <store> --to <directory>"); err != nil {
				return err
			}
			if params.To == "" {
				return fmt.Errorf("--to is required")
			}
			format, options, err := params.options("")
			if err != nil {
				return err
			}
			env, err := params.open(logger)
			if err != nil {
				return err
			}
			defer func() { err = closeAll(err, env) }()

			validators, err := env.validators(params.Only)
			if err != nil {
				return err
			}
			store, err := env.manager.SelectArtifactStoreReadOnly(args[0])
			if err != nil {
				return err
			}
			gate := publish.Gate{
				Validator: validate.Composite{Validators: validators},
				Publisher: publish.DirectoryPublisher{Root: params.To, Logger: logger},
				Logger:    logger,
			}
			result, err := gate.Run(ctx, store)
			var rejected *publish.RejectedError
			if errors.As(err, &rejected) {
				if err := report.Write(cli.Stdout, rejected.Result, format, options); err != nil {
					return err
				}
				return &cli.ExitError{Code: 1}
			}
			if err != nil {
				return err
			}
			_, warnings, _ := result.Counts()
			fmt.Fprintf(cli.Stdout, "published %s to %s (%d warnings)\n", store.Name(), params.To, warnings)
			return nil
		},
	}
}
