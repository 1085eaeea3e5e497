// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stagestore

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/staging/lib/fileops"
	"github.com/bureau-foundation/staging/lib/template"
)

// Paths inside a store directory.
const (
	MetaDir        = ".meta"
	PropertiesFile = "repository.properties"
	ArtifactsIndex = "artifacts"
	MetadataIndex  = "metadata"
	AttachmentsDir = ".attachments"
)

// Property keys of repository.properties.
const (
	keyName                   = "name"
	keyTemplateName           = "templateName"
	keyTemplatePrefix         = "templatePrefix"
	keyCreated                = "created"
	keyRepositoryMode         = "repositoryMode"
	keyAllowRedeploy          = "allowRedeploy"
	keyChecksumAlgorithms     = "checksumAlgorithmFactories"
	keyOmitChecksumExtensions = "omitChecksumsForExtensions"
)

// Meta is the persisted description of a store.
type Meta struct {
	Name                   string
	TemplateName           string
	TemplatePrefix         string
	Created                time.Time
	RepositoryMode         template.RepositoryMode
	AllowRedeploy          bool
	ChecksumAlgorithms     []string
	OmitChecksumExtensions []string
}

// PropertiesPath returns the properties file path of the store at basedir.
func PropertiesPath(basedir string) string {
	return filepath.Join(basedir, MetaDir, PropertiesFile)
}

// HasProperties reports whether basedir carries a properties file, which
// is what makes a directory under the store root a store.
func HasProperties(basedir string) bool {
	info, err := os.Stat(PropertiesPath(basedir))
	return err == nil && info.Mode().IsRegular()
}

// ReadMeta parses the properties file of the store at basedir. It takes
// no lock; callers hold one.
func ReadMeta(basedir string) (Meta, error) {
	data, err := os.ReadFile(PropertiesPath(basedir))
	if err != nil {
		return Meta{}, err
	}
	meta, err := ParseMeta(data)
	if err != nil {
		return Meta{}, fmt.Errorf("%s: %w", PropertiesPath(basedir), err)
	}
	return meta, nil
}

// ParseMeta decodes properties file content, such as the copy carried
// inside a bundle. Failures wrap ErrCorruptStore.
func ParseMeta(data []byte) (Meta, error) {
	meta, err := decodeMeta(data)
	if err != nil {
		return Meta{}, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	return meta, nil
}

// WriteMeta atomically replaces the properties file of the store at
// basedir. Callers hold the exclusive lock.
func WriteMeta(basedir string, meta Meta) error {
	return fileops.WriteFile(PropertiesPath(basedir), encodeMeta(meta), 0o644)
}

func encodeMeta(meta Meta) []byte {
	properties := map[string]string{
		keyName:                   meta.Name,
		keyTemplateName:           meta.TemplateName,
		keyCreated:                strconv.FormatInt(meta.Created.UnixMilli(), 10),
		keyRepositoryMode:         string(meta.RepositoryMode),
		keyAllowRedeploy:          strconv.FormatBool(meta.AllowRedeploy),
		keyChecksumAlgorithms:     strings.Join(meta.ChecksumAlgorithms, ","),
		keyOmitChecksumExtensions: strings.Join(meta.OmitChecksumExtensions, ","),
	}
	if meta.TemplatePrefix != "" && meta.TemplatePrefix != meta.TemplateName {
		properties[keyTemplatePrefix] = meta.TemplatePrefix
	}
	return EncodeProperties(properties)
}

func decodeMeta(data []byte) (Meta, error) {
	properties, err := DecodeProperties(data)
	if err != nil {
		return Meta{}, err
	}
	for _, key := range []string{keyName, keyTemplateName, keyCreated, keyRepositoryMode, keyAllowRedeploy} {
		if _, ok := properties[key]; !ok {
			return Meta{}, fmt.Errorf("missing property %q", key)
		}
	}

	createdMillis, err := strconv.ParseInt(properties[keyCreated], 10, 64)
	if err != nil {
		return Meta{}, fmt.Errorf("property %s: %w", keyCreated, err)
	}
	mode, err := template.ParseRepositoryMode(properties[keyRepositoryMode])
	if err != nil {
		return Meta{}, fmt.Errorf("property %s: %w", keyRepositoryMode, err)
	}
	allowRedeploy, err := strconv.ParseBool(properties[keyAllowRedeploy])
	if err != nil {
		return Meta{}, fmt.Errorf("property %s: %w", keyAllowRedeploy, err)
	}

	meta := Meta{
		Name:                   properties[keyName],
		TemplateName:           properties[keyTemplateName],
		TemplatePrefix:         properties[keyTemplatePrefix],
		Created:                time.UnixMilli(createdMillis).UTC(),
		RepositoryMode:         mode,
		AllowRedeploy:          allowRedeploy,
		ChecksumAlgorithms:     splitList(properties[keyChecksumAlgorithms]),
		OmitChecksumExtensions: splitList(properties[keyOmitChecksumExtensions]),
	}
	if meta.TemplatePrefix == "" {
		meta.TemplatePrefix = meta.TemplateName
	}
	if !template.ValidName(meta.Name) {
		return Meta{}, fmt.Errorf("property %s: %q is not a valid store name", keyName, meta.Name)
	}
	return meta, nil
}

// EncodeProperties writes key=value lines sorted by key so the same
// properties always produce the same bytes. The store root's sequence
// file shares this format.
func EncodeProperties(properties map[string]string) []byte {
	keys := make([]string, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buffer bytes.Buffer
	for _, key := range keys {
		buffer.WriteString(key)
		buffer.WriteByte('=')
		buffer.WriteString(properties[key])
		buffer.WriteByte('\n')
	}
	return buffer.Bytes()
}

// DecodeProperties parses key=value lines. Blank lines and lines
// starting with # or ! are comments. Keys and values are trimmed.
func DecodeProperties(data []byte) (map[string]string, error) {
	properties := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("line %d: missing '='", lineNumber)
		}
		properties[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return properties, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
