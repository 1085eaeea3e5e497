// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the bureau-staging command tree. Every
// command that touches stores accepts [GlobalFlags], loads the
// configuration, and opens a stagemanager.Manager for the duration of
// the command.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/staging/cmd/bureau-staging/cli"
	"github.com/bureau-foundation/staging/lib/version"
)

// Root builds and returns the complete bureau-staging command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "bureau-staging",
		Description: `bureau-staging: local staging stores for Maven artifacts.

Stage artifacts into numbered stores, validate checksums, signatures,
POMs and archives, then publish a valid store or carry it elsewhere as
a bundle.`,
		Subcommands: []*cli.Command{
			templatesCommand(),
			createCommand(),
			listCommand(),
			showCommand(),
			putCommand(),
			attachCommand(),
			validateCommand(),
			publishCommand(),
			exportCommand(),
			importCommand(),
			keygenCommand(),
			dropCommand(),
			renumberCommand(),
			redeployCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Fprintf(cli.Stdout, "bureau-staging %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Create a release store",
				Command:     "bureau-staging create --template release",
			},
			{
				Description: "Stage a jar with its POM",
				Command:     "bureau-staging put release-1 org.example:lib:jar:1.0=lib.jar org.example:lib:pom:1.0=pom.xml",
			},
			{
				Description: "Validate and publish into a local repository",
				Command:     "bureau-staging publish release-1 --to ~/.m2/repository",
			},
			{
				Description: "Hand a store to another machine",
				Command:     "bureau-staging export release-1 -o /tmp --recipient age1...",
			},
		},
	}
}
