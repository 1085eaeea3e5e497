// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"context"
	"errors"

	"github.com/bureau-foundation/staging/lib/coord"
	"github.com/bureau-foundation/staging/lib/pom"
	"github.com/bureau-foundation/staging/lib/stagestore"
)

// pomArtifact reports whether artifact is a project POM: extension
// "pom" and no classifier.
func pomArtifact(artifact coord.Artifact) bool {
	return artifact.Extension == "pom" && artifact.Classifier == ""
}

// effectiveModel resolves the POM through the store first, then the
// caller's repositories. Resolution failures become an error finding
// and a nil model; only cancellation is returned.
func effectiveModel(ctx context.Context, provider pom.ModelProvider, repositories []pom.Repository, store *stagestore.Store, artifact coord.Artifact, collector *Collector) (*pom.Model, error) {
	if provider == nil {
		provider = pom.InheritingProvider{}
	}
	chain := append([]pom.Repository{pom.StoreRepository{Store: store}}, repositories...)
	model, err := provider.EffectiveModel(ctx, artifact, chain)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		collector.Error("cannot build effective model: %v", err)
		return nil, nil
	}
	return model, nil
}

// POMCoordinates checks that each staged POM declares the coordinates
// it is stored under.
type POMCoordinates struct {
	Provider     pom.ModelProvider
	Repositories []pom.Repository
}

// NewPOMCoordinates returns a per-artifact POM coordinate validator.
func NewPOMCoordinates(p POMCoordinates) Validator { return PerArtifact(p) }

func (POMCoordinates) Name() string { return "pom-coordinates" }

func (POMCoordinates) Description() string {
	return "POM groupId, artifactId and version match the staged coordinates"
}

func (POMCoordinates) Applies(_ *stagestore.Store, artifact coord.Artifact) bool {
	return pomArtifact(artifact)
}

func (p POMCoordinates) ValidateArtifact(ctx context.Context, store *stagestore.Store, artifact coord.Artifact, collector *Collector) error {
	model, err := effectiveModel(ctx, p.Provider, p.Repositories, store, artifact, collector)
	if model == nil {
		return err
	}
	matched := true
	check := func(field, declared, actual string) {
		if declared != actual {
			collector.Error("%s mismatch: POM declares %q, staged as %q", field, declared, actual)
			matched = false
		}
	}
	check("groupId", model.EffectiveGroupID(), artifact.GroupID)
	check("artifactId", model.ArtifactID, artifact.ArtifactID)
	check("version", coord.BaseVersion(model.EffectiveVersion()), artifact.BaseVersion())
	if matched {
		collector.Info("OK: coordinates")
	}
	return nil
}

// POMCompleteness checks that each staged POM carries the project
// information public repositories require.
type POMCompleteness struct {
	Provider     pom.ModelProvider
	Repositories []pom.Repository
}

// NewPOMCompleteness returns a per-artifact POM completeness validator.
func NewPOMCompleteness(p POMCompleteness) Validator { return PerArtifact(p) }

func (POMCompleteness) Name() string { return "pom-completeness" }

func (POMCompleteness) Description() string {
	return "POM has name, description, url, licenses, developers and scm"
}

func (POMCompleteness) Applies(_ *stagestore.Store, artifact coord.Artifact) bool {
	return pomArtifact(artifact)
}

func (p POMCompleteness) ValidateArtifact(ctx context.Context, store *stagestore.Store, artifact coord.Artifact, collector *Collector) error {
	model, err := effectiveModel(ctx, p.Provider, p.Repositories, store, artifact, collector)
	if model == nil {
		return err
	}
	var missing []string
	if model.Name == "" {
		missing = append(missing, "name")
	}
	if model.Description == "" {
		missing = append(missing, "description")
	}
	if model.URL == "" {
		missing = append(missing, "url")
	}
	if !hasLicense(model.Licenses) {
		missing = append(missing, "licenses")
	}
	if !hasDeveloper(model.Developers) {
		missing = append(missing, "developers")
	}
	if model.SCM == nil || (model.SCM.URL == "" && model.SCM.Connection == "" && model.SCM.DeveloperConnection == "") {
		missing = append(missing, "scm")
	}
	for _, field := range missing {
		collector.Error("MISSING: %s", field)
	}
	if len(missing) == 0 {
		collector.Info("OK: complete")
	}
	return nil
}

func hasLicense(licenses []pom.License) bool {
	for _, license := range licenses {
		if license.Name != "" || license.URL != "" {
			return true
		}
	}
	return false
}

func hasDeveloper(developers []pom.Developer) bool {
	for _, developer := range developers {
		if developer.ID != "" || developer.Name != "" || developer.Email != "" {
			return true
		}
	}
	return false
}
