// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable source of the current time.
//
// Staging code stamps stores with their creation time and bundles with
// their export time. Components take a Clock in their config struct
// instead of calling time.Now directly; production passes Real(), tests
// pass Fake() so persisted timestamps are deterministic:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	manager, _ := stagemanager.New(stagemanager.Config{Clock: c, ...})
//	c.Advance(time.Hour)
package clock
