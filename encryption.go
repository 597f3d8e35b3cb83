package uploadkit

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os"
)

// EncryptedFS wraps a FileSystem so that file content is encrypted at rest.
// Content is sealed with AES-256-GCM; the stored object is the nonce
// followed by the ciphertext. Metadata operations (Stat, ListContents,
// FileExists) are promoted from the embedded backend and therefore report
// stored sizes, which are slightly larger than the plaintext.
//
// Whole objects are sealed in one shot, so content is buffered in memory
// during Write and Read. This keeps every stored object authenticated
// end to end; it is the right trade-off for documents, not for
// multi-gigabyte archives.
type EncryptedFS struct {
	FileSystem
	key []byte
}

// NewEncryptedFS creates a new encrypted filesystem.
// The key must be exactly 32 bytes (AES-256).
func NewEncryptedFS(fs FileSystem, key []byte) (*EncryptedFS, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return &EncryptedFS{FileSystem: fs, key: key}, nil
}

// Unwrap returns the underlying FileSystem.
func (e *EncryptedFS) Unwrap() FileSystem { return e.FileSystem }

func (e *EncryptedFS) newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Write encrypts the content before writing.
// The returned Size is the plaintext length; the stored object is larger
// by the nonce and the authentication tag.
func (e *EncryptedFS) Write(ctx context.Context, path string, content io.Reader, options ...Option) (*WriteResult, error) {
	plaintext, err := io.ReadAll(content)
	if err != nil {
		return nil, &PathError{Op: "write", Path: path, Err: err}
	}

	gcm, err := e.newGCM()
	if err != nil {
		return nil, &PathError{Op: "write", Path: path, Err: err}
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, &PathError{Op: "write", Path: path, Err: err}
	}

	// Sealing with the nonce as destination prefixes it to the ciphertext.
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)

	result, err := e.FileSystem.Write(ctx, path, bytes.NewReader(sealed), options...)
	if err != nil {
		return nil, err
	}

	result.Size = int64(len(plaintext))
	return result, nil
}

// Read decrypts the content after reading.
// Decryption fails if the stored object was tampered with or was written
// with a different key.
func (e *EncryptedFS) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	sealed, err := e.FileSystem.ReadAll(ctx, path)
	if err != nil {
		return nil, err
	}

	gcm, err := e.newGCM()
	if err != nil {
		return nil, &PathError{Op: "read", Path: path, Err: err}
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, &PathError{Op: "read", Path: path, Err: fmt.Errorf("encrypted object too short: %d bytes", len(sealed))}
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &PathError{Op: "read", Path: path, Err: fmt.Errorf("decryption failed: %w", err)}
	}

	return io.NopCloser(bytes.NewReader(plaintext)), nil
}

// ReadAll reads and decrypts all bytes from a file.
func (e *EncryptedFS) ReadAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := e.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// UploadFile encrypts and uploads a local file.
func (e *EncryptedFS) UploadFile(ctx context.Context, path, localPath string, options ...Option) (*WriteResult, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, &PathError{Op: "uploadfile", Path: localPath, Err: err}
	}
	defer file.Close()

	return e.Write(ctx, path, file, options...)
}

var (
	_ FileSystem = (*EncryptedFS)(nil)
	_ FileReader = (*EncryptedFS)(nil)
	_ FileWriter = (*EncryptedFS)(nil)
)
