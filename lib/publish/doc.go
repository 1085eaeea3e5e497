// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package publish moves a validated staging store to its destination.
//
// A [Publisher] consumes only the store's read surface. [Gate] runs a
// validation pass first and refuses to publish a store whose result
// tree holds any error; the refusal is a [*RejectedError] carrying the
// tree so callers can render it. [DirectoryPublisher] is the local
// destination: a plain Maven2-layout directory, such as a file://
// repository served by a web server.
package publish
