// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the bureau-staging configuration file.
//
// Configuration is loaded from a single file specified by either the
// BUREAU_STAGING_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no automatic file search. Commands
// that run without any configuration use [Default].
//
// YAML is the primary format. Files ending in .json or .jsonc are
// accepted too: comments and trailing commas are stripped first, and
// the remainder is decoded with the same field names. Unknown keys are
// rejected so a typo never silently falls back to a default.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${BUREAU_STAGING_ROOT} and ${VAR:-default} patterns are
// expanded. No environment variable overrides a config value.
//
// This package depends on no other Bureau packages; callers turn
// [TemplateConfig] entries into templates themselves.
package config
