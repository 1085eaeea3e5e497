// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"filippo.io/age"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/staging/cmd/bureau-staging/cli"
	"github.com/bureau-foundation/staging/lib/fileops"
	"github.com/bureau-foundation/staging/lib/sealed"
	"github.com/bureau-foundation/staging/lib/stagemanager"
)

func exportCommand() *cli.Command {
	var params struct {
		GlobalFlags
		cli.JSONOutput
		Output      string   `flag:"output,o" desc:"directory to write the bundle into" default:"."`
		Compression string   `flag:"compression" desc:"entry compression: zstd, deflate, lz4, or none (default from configuration)"`
		Recipients  []string `flag:"recipient,r" desc:"age public key to encrypt for (repeatable; default from configuration)"`
		Plain       bool     `flag:"plain" desc:"do not encrypt even when recipients are configured"`
	}
	return &cli.Command{
		Name:    "export",
		Summary: "Write a store to a portable bundle file",
		Usage:   "bureau-staging export <store> [flags]",
		Description: `Write "<output>/<store>.ntb": a zip archive of the store tree with a
manifest carrying a BLAKE3 digest of every file. With recipients the
bundle is encrypted with age and can only be imported with a
matching identity.`,
		Examples: []cli.Example{
			{Description: "Export encrypted for a colleague", Command: "bureau-staging export release-3 -o /tmp --recipient age1..."},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("export", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) (err error) {
			if err := requireArgs(args, 1, "bureau-staging export <store>"); err != nil {
				return err
			}
			env, err := params.open(logger)
			if err != nil {
				return err
			}
			defer func() { err = closeAll(err, env) }()

			name := params.Compression
			if name == "" {
				name = env.config.Bundle.Compression
			}
			compression, err := stagemanager.ParseCompression(name)
			if err != nil {
				return err
			}
			recipients := params.Recipients
			if len(recipients) == 0 {
				recipients = env.config.Bundle.Recipients
			}
			if params.Plain {
				recipients = nil
			}
			for _, recipient := range recipients {
				if err := sealed.ParsePublicKey(recipient); err != nil {
					return err
				}
			}

			store, err := env.manager.SelectArtifactStoreReadOnly(args[0])
			if err != nil {
				return err
			}
			path, err := env.manager.ExportTo(store, params.Output, stagemanager.ExportOptions{
				Compression: compression,
				Recipients:  recipients,
			})
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(map[string]any{"path": path, "encrypted": len(recipients) > 0}); done {
				return err
			}
			fmt.Fprintln(cli.Stdout, path)
			return nil
		},
	}
}

func importCommand() *cli.Command {
	var params struct {
		GlobalFlags
		cli.JSONOutput
		Identities []string `flag:"identity,i" desc:"age identity file for encrypted bundles (repeatable; default from configuration)"`
		Inspect    bool     `flag:"inspect" desc:"print the bundle manifest instead of importing"`
	}
	return &cli.Command{
		Name:    "import",
		Summary: "Create a store from a bundle file",
		Usage:   "bureau-staging import <bundle> [flags]",
		Description: `Create a new store from a bundle written by export. The store gets
a fresh name from the bundle's template prefix and a new creation
time. Every file is checked against the manifest before the store
appears; a damaged bundle leaves nothing behind.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("import", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) (err error) {
			if err := requireArgs(args, 1, "bureau-staging import <bundle>"); err != nil {
				return err
			}
			env, err := params.open(logger)
			if err != nil {
				return err
			}
			defer func() { err = closeAll(err, env) }()

			paths := params.Identities
			if len(paths) == 0 {
				paths = env.config.Bundle.Identities
			}
			var identities []age.Identity
			for _, path := range paths {
				loaded, err := sealed.LoadIdentities(path)
				if err != nil {
					return err
				}
				identities = append(identities, loaded...)
			}

			if params.Inspect {
				manifest, err := stagemanager.ReadManifest(args[0], identities)
				if err != nil {
					return err
				}
				if done, err := params.EmitJSON(manifest); done {
					return err
				}
				fmt.Fprintf(cli.Stdout, "bundle %s: store %s (template %s), %d files, %s\n",
					manifest.ID, manifest.Source, manifest.Template, len(manifest.Files), manifest.Compression)
				return nil
			}

			store, err := env.manager.ImportFrom(args[0], stagemanager.ImportOptions{Identities: identities})
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

func keygenCommand() *cli.Command {
	var params struct {
		Output string `flag:"output,o" desc:"identity file to write the private key to (required)"`
	}
	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate an age keypair for encrypted bundles",
		Usage:   "bureau-staging keygen --output <identity-file>",
		Description: `Write a new private key to the identity file (mode 0600) and print
the matching public key. Give the public key to exporters as a
recipient; import with --identity pointing at the file.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("keygen", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 0, "bureau-staging keygen --output <identity-file>"); err != nil {
				return err
			}
			if params.Output == "" {
				return fmt.Errorf("--output is required")
			}
			keypair, err := sealed.GenerateKeypair()
			if err != nil {
				return err
			}
			content := fmt.Sprintf("# public key: %s\n%s\n", keypair.PublicKey, keypair.PrivateKey)
			if err := fileops.WriteFile(params.Output, []byte(content), 0o600); err != nil {
				return err
			}
			logger.Info("identity written", "path", params.Output)
			fmt.Fprintln(cli.Stdout, keypair.PublicKey)
			return nil
		},
	}
}
