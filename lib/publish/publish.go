// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/staging/lib/stagestore"
	"github.com/bureau-foundation/staging/lib/validate"
)

var (
	// ErrRejected is matched by every RejectedError.
	ErrRejected = errors.New("publish: store failed validation")

	// ErrAlreadyPublished is returned when a destination already holds
	// an artifact and the store's template forbids redeploy.
	ErrAlreadyPublished = errors.New("publish: artifact already published")
)

// Publisher delivers the committed content of a store somewhere.
type Publisher interface {
	Publish(ctx context.Context, store *stagestore.Store) error
}

// RejectedError reports a store that Gate refused to publish.
type RejectedError struct {
	Store  string
	Result *validate.Result
}

func (e *RejectedError) Error() string {
	_, warnings, errs := e.Result.Counts()
	return fmt.Sprintf("publish: store %s failed validation (%d errors, %d warnings)", e.Store, errs, warnings)
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

// Gate validates a store and hands it to Publisher only when the result
// tree is valid.
type Gate struct {
	Validator validate.Composite
	Publisher Publisher
	Logger    *slog.Logger
}

// Publish implements Publisher.
func (g Gate) Publish(ctx context.Context, store *stagestore.Store) error {
	_, err := g.Run(ctx, store)
	return err
}

// Run is Publish that also returns the validation tree, whether or not
// the store was published.
func (g Gate) Run(ctx context.Context, store *stagestore.Store) (*validate.Result, error) {
	logger := g.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	result, err := g.Validator.Validate(ctx, store)
	if err != nil {
		return result, fmt.Errorf("validating %s: %w", store.Name(), err)
	}
	if !result.IsValid() {
		_, warnings, errs := result.Counts()
		logger.Info("publish rejected", "store", store.Name(), "errors", errs, "warnings", warnings)
		return result, &RejectedError{Store: store.Name(), Result: result}
	}
	if err := g.Publisher.Publish(ctx, store); err != nil {
		return result, err
	}
	logger.Info("store published", "store", store.Name())
	return result, nil
}
