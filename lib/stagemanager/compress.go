// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stagemanager

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how bundle entries are compressed.
type Compression string

const (
	// CompressionZstd uses zstd (zip method 93). Default.
	CompressionZstd Compression = "zstd"

	// CompressionDeflate uses plain deflate, readable by any zip tool.
	CompressionDeflate Compression = "deflate"

	// CompressionLZ4 uses LZ4 frames under a private method number.
	// Only these tools can extract such entries.
	CompressionLZ4 Compression = "lz4"

	// CompressionNone stores entries uncompressed.
	CompressionNone Compression = "none"
)

// methodLZ4 is outside the range assigned by the zip specification.
const methodLZ4 uint16 = 0x4c34

// ParseCompression parses a compression name. The empty string selects
// CompressionZstd.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "":
		return CompressionZstd, nil
	case CompressionZstd, CompressionDeflate, CompressionLZ4, CompressionNone:
		return Compression(name), nil
	default:
		return "", fmt.Errorf("unknown bundle compression %q (want zstd, deflate, lz4, or none)", name)
	}
}

func (c Compression) method() uint16 {
	switch c {
	case CompressionDeflate:
		return zip.Deflate
	case CompressionLZ4:
		return methodLZ4
	case CompressionNone:
		return zip.Store
	default:
		return zstd.ZipMethodWinZip
	}
}

func registerCompressors(w *zip.Writer) {
	w.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	w.RegisterCompressor(methodLZ4, func(out io.Writer) (io.WriteCloser, error) {
		return lz4.NewWriter(out), nil
	})
}

func registerDecompressors(r *zip.Reader) {
	r.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	r.RegisterDecompressor(methodLZ4, func(in io.Reader) io.ReadCloser {
		return io.NopCloser(lz4.NewReader(in))
	})
}
