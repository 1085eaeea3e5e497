// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coord

import "strings"

// ArtifactPath returns the Maven2 layout path of a:
// groupId(dots→slashes)/artifactId/baseVersion/artifactId-version[-classifier].extension
func ArtifactPath(a Artifact) string {
	var name strings.Builder
	name.WriteString(a.ArtifactID)
	name.WriteByte('-')
	name.WriteString(a.Version)
	if a.Classifier != "" {
		name.WriteByte('-')
		name.WriteString(a.Classifier)
	}
	if a.Extension != "" {
		name.WriteByte('.')
		name.WriteString(a.Extension)
	}
	return groupPath(a.GroupID) + "/" + a.ArtifactID + "/" + a.BaseVersion() + "/" + name.String()
}

// MetadataPath returns the Maven2 layout path of m. The type is the
// file name; the directory depth follows which of artifactId and
// version are set.
func MetadataPath(m Metadata) string {
	path := groupPath(m.GroupID)
	if m.ArtifactID != "" {
		path += "/" + m.ArtifactID
		if m.Version != "" {
			path += "/" + BaseVersion(m.Version)
		}
	}
	return path + "/" + m.Type
}

// POMFor returns the coordinate of the POM describing artifact a.
func POMFor(a Artifact) Artifact {
	return Artifact{GroupID: a.GroupID, ArtifactID: a.ArtifactID, Version: a.Version, Extension: "pom"}
}

func groupPath(groupID string) string {
	return strings.ReplaceAll(groupID, ".", "/")
}
