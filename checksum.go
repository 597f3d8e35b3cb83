package uploadkit

import (
	"context"
	"crypto/md5"  //nolint:gosec // checksum verification, not security
	"crypto/sha1" //nolint:gosec // checksum verification, not security
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// hasherFor maps each algorithm to its hasher constructor. MD5 and
// SHA-1 stay available for interoperability with existing manifests,
// not as security primitives.
var hasherFor = map[ChecksumAlgorithm]func() hash.Hash{
	ChecksumMD5:    md5.New,  //nolint:gosec // checksum verification, not security
	ChecksumSHA1:   sha1.New, //nolint:gosec // checksum verification, not security
	ChecksumSHA256: sha256.New,
	ChecksumSHA512: sha512.New,
	ChecksumCRC32:  func() hash.Hash { return crc32.NewIEEE() },
	ChecksumXXHash: func() hash.Hash { return xxhash.New() },
}

// NewHasher returns a fresh hash.Hash for the algorithm. Unknown
// algorithms report ErrNotSupported.
func NewHasher(algorithm ChecksumAlgorithm) (hash.Hash, error) {
	newHash, ok := hasherFor[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported checksum algorithm: %s", ErrNotSupported, algorithm)
	}
	return newHash(), nil
}

// CalculateChecksum streams r through the algorithm's hasher and
// returns the hex-encoded digest.
func CalculateChecksum(r io.Reader, algorithm ChecksumAlgorithm) (string, error) {
	h, err := NewHasher(algorithm)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CalculateChecksums computes every requested digest in a single read
// pass, fanning the content out to all hashers at once.
func CalculateChecksums(r io.Reader, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	if len(algorithms) == 0 {
		return nil, errors.New("no algorithms specified")
	}

	hashers := make([]hash.Hash, len(algorithms))
	writers := make([]io.Writer, len(algorithms))
	for i, algorithm := range algorithms {
		h, err := NewHasher(algorithm)
		if err != nil {
			return nil, err
		}
		hashers[i] = h
		writers[i] = h
	}

	if _, err := io.Copy(io.MultiWriter(writers...), r); err != nil {
		return nil, fmt.Errorf("failed to calculate checksums: %w", err)
	}

	sums := make(map[ChecksumAlgorithm]string, len(algorithms))
	for i, algorithm := range algorithms {
		sums[algorithm] = hex.EncodeToString(hashers[i].Sum(nil))
	}
	return sums, nil
}

// FileChecksum returns the checksum of the file at path. Backends
// implementing CanChecksum answer natively, possibly without moving
// the content; everything else is streamed through a local hasher. A
// backend that reports ErrNotSupported falls back to streaming too.
func FileChecksum(ctx context.Context, fs FileSystem, path string, algorithm ChecksumAlgorithm) (string, error) {
	if summer, ok := fs.(CanChecksum); ok {
		sum, err := summer.Checksum(ctx, path, algorithm)
		switch {
		case err == nil:
			return sum, nil
		case !IsNotSupported(err):
			return "", err
		}
	}

	r, err := fs.Read(ctx, path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	return CalculateChecksum(r, algorithm)
}

// VerifyChecksum reports whether the file at path hashes to expected.
// Hex digests compare case-insensitively, so manifests recording
// uppercase digests verify cleanly.
func VerifyChecksum(ctx context.Context, fs FileSystem, path, expected string, algorithm ChecksumAlgorithm) (bool, error) {
	actual, err := FileChecksum(ctx, fs, path, algorithm)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expected), nil
}
