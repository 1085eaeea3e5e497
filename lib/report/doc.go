// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package report renders a validation result tree for people: styled
// terminal text, Markdown for pull requests and release notes, HTML for
// attaching to a store, and JSON for machines.
package report
