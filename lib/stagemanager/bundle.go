// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stagemanager

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"filippo.io/age"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/staging/lib/codec"
	"github.com/bureau-foundation/staging/lib/dirlock"
	"github.com/bureau-foundation/staging/lib/fileops"
	"github.com/bureau-foundation/staging/lib/sealed"
	"github.com/bureau-foundation/staging/lib/stagestore"
)

const (
	// BundleExtension is the file extension of exported bundles.
	BundleExtension = ".ntb"

	// ManifestName is the bundle entry holding the CBOR manifest.
	ManifestName = ".bundle"

	// BundleFormat is the manifest format version this package writes
	// and the only one it reads.
	BundleFormat = 1
)

// Manifest describes the content of a bundle.
type Manifest struct {
	Format      int            `cbor:"format"`
	ID          string         `cbor:"id"`
	Source      string         `cbor:"source"`
	Template    string         `cbor:"template"`
	Created     time.Time      `cbor:"created"`
	Exported    time.Time      `cbor:"exported"`
	Compression Compression    `cbor:"compression"`
	Files       []ManifestFile `cbor:"files"`
}

// ManifestFile is one store file carried in a bundle.
type ManifestFile struct {
	Path   string `cbor:"path"`
	Size   int64  `cbor:"size"`
	BLAKE3 []byte `cbor:"blake3"`
}

// ExportOptions configures ExportTo.
type ExportOptions struct {
	// Compression of the entries. Empty means CompressionZstd.
	Compression Compression

	// Recipients are age public keys. When set the bundle is encrypted.
	Recipients []string
}

// ImportOptions configures ImportFrom.
type ImportOptions struct {
	// Identities decrypt encrypted bundles. Plain bundles ignore them.
	Identities []age.Identity
}

// ExportTo writes store as "<directory>/<store name>.ntb" and returns
// that path. The bundle is written to a temporary file and renamed into
// place. The store's shared lock keeps other processes from mutating it
// while it is read.
func (m *Manager) ExportTo(store *stagestore.Store, directory string, options ExportOptions) (string, error) {
	if err := m.checkOpen(); err != nil {
		return "", err
	}
	if _, err := store.Artifacts(); err != nil {
		return "", err
	}
	compression, err := ParseCompression(string(options.Compression))
	if err != nil {
		return "", err
	}
	files, err := bundleFiles(store.Basedir())
	if err != nil {
		return "", fmt.Errorf("listing store %s: %w", store.Name(), err)
	}

	manifest := Manifest{
		Format:      BundleFormat,
		ID:          uuid.NewString(),
		Source:      store.Name(),
		Template:    store.Template().Name(),
		Created:     store.Created(),
		Exported:    m.clock.Now().UTC(),
		Compression: compression,
	}
	bundlePath := filepath.Join(directory, store.Name()+BundleExtension)

	reader, writer := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := writeBundle(writer, store.Basedir(), files, &manifest, options.Recipients)
		writer.CloseWithError(err)
		done <- err
	}()
	writeErr := fileops.WriteFileFrom(bundlePath, reader, 0o644)
	reader.CloseWithError(errors.New("bundle writer abandoned"))
	produceErr := <-done
	if writeErr != nil {
		return "", fmt.Errorf("exporting store %s: %w", store.Name(), errors.Join(produceErr, writeErr))
	}

	m.logger.Info("store exported",
		"store", store.Name(),
		"path", bundlePath,
		"bundle_id", manifest.ID,
		"files", len(manifest.Files),
		"encrypted", len(options.Recipients) > 0,
	)
	return bundlePath, nil
}

// bundleFiles lists the regular files of a store tree relative to
// basedir, skipping the lock marker and in-flight temporary files.
func bundleFiles(basedir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(basedir, func(current string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		relative, err := filepath.Rel(basedir, current)
		if err != nil {
			return err
		}
		relative = filepath.ToSlash(relative)
		if relative == dirlock.MarkerName || isTemporary(entry.Name()) {
			return nil
		}
		files = append(files, relative)
		return nil
	})
	return files, err
}

func isTemporary(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")
}

func writeBundle(w io.Writer, basedir string, files []string, manifest *Manifest, recipients []string) error {
	sink := w
	var encryptor io.WriteCloser
	if len(recipients) > 0 {
		var err error
		encryptor, err = sealed.EncryptTo(w, recipients)
		if err != nil {
			return err
		}
		sink = encryptor
	}

	archive := zip.NewWriter(sink)
	registerCompressors(archive)
	for _, relative := range files {
		entry, err := addBundleFile(archive, basedir, relative, manifest.Compression.method())
		if err != nil {
			return fmt.Errorf("adding %s: %w", relative, err)
		}
		manifest.Files = append(manifest.Files, entry)
	}

	encoded, err := codec.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	manifestWriter, err := archive.CreateHeader(&zip.FileHeader{Name: ManifestName, Method: zip.Store, Modified: manifest.Exported})
	if err != nil {
		return err
	}
	if _, err := manifestWriter.Write(encoded); err != nil {
		return err
	}
	if err := archive.Close(); err != nil {
		return err
	}
	if encryptor != nil {
		return encryptor.Close()
	}
	return nil
}

func addBundleFile(archive *zip.Writer, basedir, relative string, method uint16) (ManifestFile, error) {
	file, err := os.Open(filepath.Join(basedir, filepath.FromSlash(relative)))
	if err != nil {
		return ManifestFile{}, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return ManifestFile{}, err
	}

	header := &zip.FileHeader{Name: relative, Method: method, Modified: info.ModTime()}
	header.SetMode(info.Mode())
	entry, err := archive.CreateHeader(header)
	if err != nil {
		return ManifestFile{}, err
	}
	hasher := blake3.New()
	size, err := io.Copy(io.MultiWriter(entry, hasher), file)
	if err != nil {
		return ManifestFile{}, err
	}
	return ManifestFile{Path: relative, Size: size, BLAKE3: hasher.Sum(nil)}, nil
}

// ImportFrom creates a new store from the bundle at bundlePath. The
// store gets a freshly allocated name for the bundle's template prefix
// and a new creation time; every other property comes from the bundle.
// Every file is checked against the manifest digest before the store's
// properties file is written, so a rejected bundle never shows up as a
// store.
func (m *Manager) ImportFrom(bundlePath string, options ImportOptions) (*stagestore.Store, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	file, err := os.Open(bundlePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	plain, encrypted, err := sealed.Open(file, options.Identities)
	if err != nil {
		return nil, fmt.Errorf("opening bundle %s: %w", bundlePath, err)
	}
	var archiveData io.ReaderAt = file
	var size int64
	if encrypted {
		scratch, err := os.CreateTemp(m.root, ".import-*.tmp")
		if err != nil {
			return nil, err
		}
		defer os.Remove(scratch.Name())
		defer scratch.Close()
		if size, err = io.Copy(scratch, plain); err != nil {
			return nil, fmt.Errorf("decrypting bundle %s: %w", bundlePath, err)
		}
		archiveData = scratch
	} else {
		info, err := file.Stat()
		if err != nil {
			return nil, err
		}
		size = info.Size()
	}

	archive, err := zip.NewReader(archiveData, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBundle, bundlePath, err)
	}
	registerDecompressors(archive)
	return m.importArchive(archive, bundlePath)
}

func (m *Manager) importArchive(archive *zip.Reader, bundlePath string) (*stagestore.Store, error) {
	manifest, err := readManifest(archive)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", bundlePath, err)
	}
	propertiesPath := path.Join(stagestore.MetaDir, stagestore.PropertiesFile)
	propertiesData, err := fs.ReadFile(archive, propertiesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: no %s: %v", ErrInvalidBundle, bundlePath, propertiesPath, err)
	}
	meta, err := stagestore.ParseMeta(propertiesData)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBundle, bundlePath, err)
	}

	name, basedir, err := m.allocate(meta.TemplatePrefix)
	if err != nil {
		return nil, err
	}
	if err := extractBundle(archive, manifest, basedir, propertiesPath); err != nil {
		return nil, errors.Join(fmt.Errorf("importing %s: %w", bundlePath, err), fileops.DeleteTree(basedir, nil))
	}

	meta.Name = name
	meta.Created = m.clock.Now()
	store, err := stagestore.Create(basedir, meta, m.storeOptions(false))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("importing %s: %w", bundlePath, err), fileops.DeleteTree(basedir, nil))
	}
	if err := checkIndexes(store); err != nil {
		return nil, errors.Join(fmt.Errorf("%w: %s: %w", ErrInvalidBundle, bundlePath, err), store.Close(), fileops.DeleteTree(basedir, nil))
	}
	m.logger.Info("store imported",
		"store", name,
		"source", manifest.Source,
		"bundle_id", manifest.ID,
		"files", len(manifest.Files),
	)
	return m.track(store), nil
}

// checkIndexes reads both indexes of a freshly imported store, which
// rejects entries outside the Maven2 layout.
func checkIndexes(store *stagestore.Store) error {
	if _, err := store.Artifacts(); err != nil {
		return err
	}
	_, err := store.Metadata()
	return err
}

func readManifest(archive *zip.Reader) (Manifest, error) {
	data, err := fs.ReadFile(archive, ManifestName)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: no manifest: %v", ErrInvalidBundle, err)
	}
	var manifest Manifest
	if err := codec.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("%w: decoding manifest: %v", ErrInvalidBundle, err)
	}
	if manifest.Format != BundleFormat {
		return Manifest{}, fmt.Errorf("%w: manifest format %d, want %d", ErrInvalidBundle, manifest.Format, BundleFormat)
	}
	return manifest, nil
}

// extractBundle copies every manifest file except the properties file
// into basedir, verifying sizes and digests. Archive entries that the
// manifest does not list are rejected.
func extractBundle(archive *zip.Reader, manifest Manifest, basedir, propertiesPath string) error {
	listed := make(map[string]bool, len(manifest.Files))
	for _, file := range manifest.Files {
		if !fs.ValidPath(file.Path) || file.Path == dirlock.MarkerName || file.Path == ManifestName {
			return fmt.Errorf("%w: manifest lists unsafe path %q", ErrInvalidBundle, file.Path)
		}
		listed[file.Path] = true
	}
	for _, entry := range archive.File {
		if entry.Name == ManifestName || strings.HasSuffix(entry.Name, "/") {
			continue
		}
		if !listed[entry.Name] {
			return fmt.Errorf("%w: entry %q is not in the manifest", ErrInvalidBundle, entry.Name)
		}
	}

	for _, file := range manifest.Files {
		if file.Path == propertiesPath {
			if err := verifyEntry(archive, file, io.Discard); err != nil {
				return err
			}
			continue
		}
		target := filepath.Join(basedir, filepath.FromSlash(file.Path))
		reader, writer := io.Pipe()
		go func() {
			writer.CloseWithError(verifyEntry(archive, file, writer))
		}()
		err := fileops.WriteFileFrom(target, reader, 0o644)
		reader.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// verifyEntry streams one entry into w, failing if its size or BLAKE3
// digest differs from the manifest.
func verifyEntry(archive *zip.Reader, file ManifestFile, w io.Writer) error {
	entry, err := archive.Open(file.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidBundle, file.Path, err)
	}
	defer entry.Close()
	hasher := blake3.New()
	size, err := io.Copy(io.MultiWriter(w, hasher), entry)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrInvalidBundle, file.Path, err)
	}
	if size != file.Size || !bytes.Equal(hasher.Sum(nil), file.BLAKE3) {
		return fmt.Errorf("%w: %s does not match its manifest digest", ErrInvalidBundle, file.Path)
	}
	return nil
}

// ReadManifest returns the manifest of the bundle at bundlePath,
// decrypting with identities when the bundle is encrypted.
func ReadManifest(bundlePath string, identities []age.Identity) (Manifest, error) {
	file, err := os.Open(bundlePath)
	if err != nil {
		return Manifest{}, err
	}
	defer file.Close()
	plain, encrypted, err := sealed.Open(file, identities)
	if err != nil {
		return Manifest{}, err
	}
	var archive *zip.Reader
	if encrypted {
		data, err := io.ReadAll(plain)
		if err != nil {
			return Manifest{}, err
		}
		archive, err = zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
		}
	} else {
		info, err := file.Stat()
		if err != nil {
			return Manifest{}, err
		}
		archive, err = zip.NewReader(file, info.Size())
		if err != nil {
			return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
		}
	}
	return readManifest(archive)
}
