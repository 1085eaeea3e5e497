// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pom

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Model is the subset of a POM the validators inspect.
type Model struct {
	XMLName     xml.Name    `xml:"project"`
	Parent      *Parent     `xml:"parent"`
	GroupID     string      `xml:"groupId"`
	ArtifactID  string      `xml:"artifactId"`
	Version     string      `xml:"version"`
	Packaging   string      `xml:"packaging"`
	Name        string      `xml:"name"`
	Description string      `xml:"description"`
	URL         string      `xml:"url"`
	Licenses    []License   `xml:"licenses>license"`
	Developers  []Developer `xml:"developers>developer"`
	SCM         *SCM        `xml:"scm"`
	Properties  Properties  `xml:"properties"`
}

// Parent references the POM a model inherits from.
type Parent struct {
	GroupID      string `xml:"groupId"`
	ArtifactID   string `xml:"artifactId"`
	Version      string `xml:"version"`
	RelativePath string `xml:"relativePath"`
}

// License is one <license> entry.
type License struct {
	Name string `xml:"name"`
	URL  string `xml:"url"`
}

// Developer is one <developer> entry.
type Developer struct {
	ID    string `xml:"id"`
	Name  string `xml:"name"`
	Email string `xml:"email"`
}

// SCM is the <scm> block.
type SCM struct {
	Connection          string `xml:"connection"`
	DeveloperConnection string `xml:"developerConnection"`
	URL                 string `xml:"url"`
	Tag                 string `xml:"tag"`
}

// Properties holds <properties> children keyed by element name.
type Properties map[string]string

// UnmarshalXML collects every child element of <properties>.
func (p *Properties) UnmarshalXML(decoder *xml.Decoder, start xml.StartElement) error {
	properties := Properties{}
	for {
		token, err := decoder.Token()
		if err != nil {
			return err
		}
		switch element := token.(type) {
		case xml.StartElement:
			var value string
			if err := decoder.DecodeElement(&value, &element); err != nil {
				return err
			}
			properties[element.Name.Local] = strings.TrimSpace(value)
		case xml.EndElement:
			*p = properties
			return nil
		}
	}
}

// Parse decodes a POM document.
func Parse(r io.Reader) (*Model, error) {
	var model Model
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	if err := decoder.Decode(&model); err != nil {
		return nil, fmt.Errorf("parsing POM: %w", err)
	}
	model.trim()
	return &model, nil
}

func (m *Model) trim() {
	for _, field := range []*string{&m.GroupID, &m.ArtifactID, &m.Version, &m.Packaging, &m.Name, &m.Description, &m.URL} {
		*field = strings.TrimSpace(*field)
	}
	if m.Parent != nil {
		m.Parent.GroupID = strings.TrimSpace(m.Parent.GroupID)
		m.Parent.ArtifactID = strings.TrimSpace(m.Parent.ArtifactID)
		m.Parent.Version = strings.TrimSpace(m.Parent.Version)
	}
}

// EffectiveGroupID returns the model's groupId or, when absent, its
// parent's.
func (m *Model) EffectiveGroupID() string {
	if m.GroupID == "" && m.Parent != nil {
		return m.Parent.GroupID
	}
	return m.GroupID
}

// EffectiveVersion returns the model's version or, when absent, its
// parent's.
func (m *Model) EffectiveVersion() string {
	if m.Version == "" && m.Parent != nil {
		return m.Parent.Version
	}
	return m.Version
}
