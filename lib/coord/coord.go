// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coord

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidCoordinate is wrapped by every parse and validation failure.
var ErrInvalidCoordinate = errors.New("coord: invalid coordinate")

// SnapshotSuffix marks a version as a snapshot.
const SnapshotSuffix = "SNAPSHOT"

// timestampedSnapshot matches a deployed snapshot version such as
// 1.0-20260101.120000-3 and captures the base prefix.
var timestampedSnapshot = regexp.MustCompile(`^(.*)-([0-9]{8}\.[0-9]{6})-([0-9]+)$`)

// Artifact identifies one artifact file. File is the local backing file
// and is not part of the identity.
type Artifact struct {
	GroupID    string
	ArtifactID string
	Version    string
	Classifier string
	Extension  string

	// File is the path of the file holding the artifact content.
	File string
}

// String returns groupId:artifactId:extension[:classifier]:version.
func (a Artifact) String() string {
	if a.Classifier == "" {
		return a.GroupID + ":" + a.ArtifactID + ":" + a.Extension + ":" + a.Version
	}
	return a.GroupID + ":" + a.ArtifactID + ":" + a.Extension + ":" + a.Classifier + ":" + a.Version
}

// IsSnapshot reports whether the artifact version is a snapshot.
func (a Artifact) IsSnapshot() bool { return IsSnapshot(a.Version) }

// BaseVersion returns the version with any snapshot timestamp collapsed
// back to "-SNAPSHOT".
func (a Artifact) BaseVersion() string { return BaseVersion(a.Version) }

// WithFile returns a copy of a backed by file.
func (a Artifact) WithFile(file string) Artifact {
	a.File = file
	return a
}

// Validate checks that required fields are present and that no field
// can escape the repository layout.
func (a Artifact) Validate() error {
	required := []struct{ name, value string }{
		{"groupId", a.GroupID},
		{"artifactId", a.ArtifactID},
		{"version", a.Version},
		{"extension", a.Extension},
	}
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("%w %q: %s is empty", ErrInvalidCoordinate, a.String(), field.name)
		}
	}
	for _, value := range []string{a.GroupID, a.ArtifactID, a.Version, a.Classifier, a.Extension} {
		if err := checkSegment(value); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidCoordinate, a.String(), err)
		}
	}
	return nil
}

// ParseArtifact parses groupId:artifactId:extension[:classifier]:version.
func ParseArtifact(text string) (Artifact, error) {
	parts := strings.Split(text, ":")
	var artifact Artifact
	switch len(parts) {
	case 4:
		artifact = Artifact{GroupID: parts[0], ArtifactID: parts[1], Extension: parts[2], Version: parts[3]}
	case 5:
		artifact = Artifact{GroupID: parts[0], ArtifactID: parts[1], Extension: parts[2], Classifier: parts[3], Version: parts[4]}
	default:
		return Artifact{}, fmt.Errorf("%w %q: want groupId:artifactId:extension[:classifier]:version", ErrInvalidCoordinate, text)
	}
	if err := artifact.Validate(); err != nil {
		return Artifact{}, err
	}
	return artifact, nil
}

// Metadata identifies one repository metadata file. File is the local
// backing file and is not part of the identity.
type Metadata struct {
	GroupID    string
	ArtifactID string
	Version    string
	Type       string

	// File is the path of the file holding the metadata content.
	File string
}

// String returns groupId:artifactId:version:type.
func (m Metadata) String() string {
	return m.GroupID + ":" + m.ArtifactID + ":" + m.Version + ":" + m.Type
}

// WithFile returns a copy of m backed by file.
func (m Metadata) WithFile(file string) Metadata {
	m.File = file
	return m
}

// Validate checks field presence and layout safety. A version requires
// an artifactId: version-level metadata always belongs to an artifact.
func (m Metadata) Validate() error {
	if m.GroupID == "" {
		return fmt.Errorf("%w %q: groupId is empty", ErrInvalidCoordinate, m.String())
	}
	if m.Type == "" {
		return fmt.Errorf("%w %q: type is empty", ErrInvalidCoordinate, m.String())
	}
	if m.Version != "" && m.ArtifactID == "" {
		return fmt.Errorf("%w %q: version without artifactId", ErrInvalidCoordinate, m.String())
	}
	for _, value := range []string{m.GroupID, m.ArtifactID, m.Version, m.Type} {
		if err := checkSegment(value); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidCoordinate, m.String(), err)
		}
	}
	return nil
}

// ParseMetadata parses groupId:artifactId:version:type. ArtifactId and
// version may be empty.
func ParseMetadata(text string) (Metadata, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 4 {
		return Metadata{}, fmt.Errorf("%w %q: want groupId:artifactId:version:type", ErrInvalidCoordinate, text)
	}
	metadata := Metadata{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2], Type: parts[3]}
	if err := metadata.Validate(); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

// IsSnapshot reports whether version is a snapshot, either literal
// (1.0-SNAPSHOT) or timestamped (1.0-20260101.120000-3).
func IsSnapshot(version string) bool {
	return strings.HasSuffix(version, SnapshotSuffix) || timestampedSnapshot.MatchString(version)
}

// BaseVersion maps a timestamped snapshot version to its -SNAPSHOT
// form. Other versions are returned unchanged.
func BaseVersion(version string) string {
	if match := timestampedSnapshot.FindStringSubmatch(version); match != nil {
		return match[1] + "-" + SnapshotSuffix
	}
	return version
}

// checkSegment rejects values that would alter the directory structure
// when used as path components.
func checkSegment(value string) error {
	if strings.ContainsAny(value, "/\\=\n\r") {
		return fmt.Errorf("%q contains a forbidden character", value)
	}
	if value == "." || value == ".." || strings.Contains(value, "..") {
		return fmt.Errorf("%q contains a dot-segment", value)
	}
	return nil
}
