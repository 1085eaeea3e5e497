// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/staging/cmd/bureau-staging/cli"
	"github.com/bureau-foundation/staging/lib/coord"
)

func putCommand() *cli.Command {
	var params struct {
		GlobalFlags
		Metadata []string `flag:"metadata,m" desc:"metadata to stage as groupId:artifactId:version:type=file (repeatable)"`
	}
	return &cli.Command{
		Name:    "put",
		Summary: "Stage artifacts and metadata into a store",
		Usage:   "bureau-staging put <store> <coordinate=file>... [flags]",
		Description: `Copy files into a store at their Maven2 layout paths, write checksum
sidecars, and index them. Artifact coordinates have the form
groupId:artifactId:extension[:classifier]:version. The whole batch is
rejected when any file is missing, any artifact disagrees with the
store's repository mode, or an artifact is already staged and the
store's template forbids redeploy.`,
		Examples: []cli.Example{
			{
				Description: "Stage a jar and its POM",
				Command:     "bureau-staging put release-1 org.example:lib:jar:1.0=lib.jar org.example:lib:pom:1.0=pom.xml",
			},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("put", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) (err error) {
			if len(args) < 1 || (len(args) == 1 && len(params.Metadata) == 0) {
				return fmt.Errorf("a store and at least one coordinate=file are required\n\nUsage: bureau-staging put <store> <coordinate=file>...")
			}
			var artifacts []coord.Artifact
			for _, assignment := range args[1:] {
				coordinate, file, err := parseAssignment(assignment)
				if err != nil {
					return err
				}
				artifact, err := coord.ParseArtifact(coordinate)
				if err != nil {
					return err
				}
				artifacts = append(artifacts, artifact.WithFile(file))
			}
			var metadata []coord.Metadata
			for _, assignment := range params.Metadata {
				coordinate, file, err := parseAssignment(assignment)
				if err != nil {
					return err
				}
				entry, err := coord.ParseMetadata(coordinate)
				if err != nil {
					return err
				}
				metadata = append(metadata, entry.WithFile(file))
			}

			env, err := params.open(logger)
			if err != nil {
				return err
			}
			defer func() { err = closeAll(err, env) }()

			store, err := env.manager.SelectArtifactStore(args[0])
			if err != nil {
				return err
			}
			operation, err := store.Put(artifacts, metadata)
			if err != nil {
				return err
			}
			if err := operation.Install(); err != nil {
				operation.Cancel()
				return errors.Join(err, operation.Close())
			}
			if err := operation.Close(); err != nil {
				return err
			}
			for _, artifact := range operation.Artifacts() {
				fmt.Fprintf(cli.Stdout, "staged %s\n", artifact)
			}
			for _, entry := range operation.Metadata() {
				fmt.Fprintf(cli.Stdout, "staged %s\n", entry)
			}
			return nil
		},
	}
}

func attachCommand() *cli.Command {
	var params struct {
		GlobalFlags
		Delete bool `flag:"delete" desc:"remove the attachment instead of writing it"`
	}
	return &cli.Command{
		Name:    "attach",
		Summary: "Write, read, or delete a store attachment",
		Usage:   "bureau-staging attach <store> [<name> [file|-]] [flags]",
		Description: `Attachments are named files kept beside a store's artifacts and
never published. With only a store, list its attachments. With a
name and a file (or "-" for stdin), write a new attachment; an
existing name is refused. With a name alone, print the attachment.
With --delete, remove it.`,
		Examples: []cli.Example{
			{Description: "Keep the build log with the store", Command: "bureau-staging attach release-1 build.log ./build.log"},
			{Description: "Save a validation report", Command: "bureau-staging validate release-1 --format html | bureau-staging attach release-1 report.html -"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("attach", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) (err error) {
			if len(args) < 1 || len(args) > 3 {
				return fmt.Errorf("expected 1 to 3 arguments, got %d\n\nUsage: bureau-staging attach <store> [<name> [file|-]]", len(args))
			}
			if params.Delete && len(args) != 2 {
				return fmt.Errorf("--delete takes exactly a store and an attachment name")
			}
			env, err := params.open(logger)
			if err != nil {
				return err
			}
			defer func() { err = closeAll(err, env) }()

			if len(args) < 3 && !params.Delete {
				store, err := env.manager.SelectArtifactStoreReadOnly(args[0])
				if err != nil {
					return err
				}
				if len(args) == 1 {
					names, err := store.Attachments()
					if err != nil {
						return err
					}
					for _, name := range names {
						fmt.Fprintln(cli.Stdout, name)
					}
					return nil
				}
				content, err := store.AttachmentContent(args[1])
				if err != nil {
					return err
				}
				defer content.Close()
				_, err = io.Copy(cli.Stdout, content)
				return err
			}

			store, err := env.manager.SelectArtifactStore(args[0])
			if err != nil {
				return err
			}
			attachment, err := store.ManageAttachment(args[1])
			if err != nil {
				return err
			}
			if params.Delete {
				err = attachment.Delete()
			} else {
				err = writeAttachment(attachment.Write, args[2])
			}
			if err != nil {
				attachment.Cancel()
				return errors.Join(err, attachment.Close())
			}
			return attachment.Close()
		},
	}
}

// writeAttachment feeds write from path, or from stdin when path is "-".
func writeAttachment(write func(io.Reader) error, path string) error {
	if path == "-" {
		return write(os.Stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return write(file)
}
