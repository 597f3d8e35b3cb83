package uploadkit

import (
	"time"

	"github.com/gobeaver/uploadkit/filevalidator"
)

// Option mutates the Options for a single operation.
type Option func(*Options)

// Options collects per-call settings for writes and signing. Drivers
// read the fields they support and ignore the rest.
type Options struct {
	// ContentType declares the MIME type of the content. Drivers store
	// it with the file; the validator checks it against the accepted
	// types.
	ContentType string

	// ContentDisposition and CacheControl become the matching HTTP
	// headers on backends that serve content directly.
	ContentDisposition string
	CacheControl       string

	// Metadata holds caller key/value pairs stored alongside the file.
	Metadata map[string]string

	// Headers holds extra HTTP headers for backends that accept them.
	Headers map[string]string

	// Visibility controls who may fetch the stored file.
	Visibility Visibility

	// ACL names a backend-specific canned ACL, for drivers whose access
	// model is finer than Visibility.
	ACL string

	// Overwrite permits replacing an existing file. Without it, writing
	// to an occupied path fails with ErrExist.
	Overwrite bool

	// SkipExistingCheck drops the pre-write existence probe, saving a
	// round-trip on backends where the probe is a network call.
	SkipExistingCheck bool

	// PreserveFilename keeps the client-supplied filename instead of a
	// generated name.
	PreserveFilename bool

	// Expires sets an expiration timestamp on backends with object
	// lifecycle support.
	Expires *time.Time

	// Encryption selects a per-write key, overriding the key the
	// filesystem was built with.
	Encryption *EncryptionOptions

	// Validator replaces the filesystem-level validator for this write.
	Validator filevalidator.Validator
}

// Visibility classifies who may fetch a stored file.
type Visibility string

const (
	// Private files require authenticated access.
	Private Visibility = "private"

	// Public files are served to anyone.
	Public Visibility = "public"

	// Protected files require specific permissions.
	Protected Visibility = "protected"
)

// EncryptionOptions carries key material for a single write.
type EncryptionOptions struct {
	// Algorithm names the cipher.
	Algorithm string

	// Key is the raw key material.
	Key []byte

	// KeyID tags the key so rotated keys stay distinguishable.
	KeyID string
}

// WithContentType declares the MIME type of the content being written.
func WithContentType(contentType string) Option {
	return func(o *Options) { o.ContentType = contentType }
}

// WithContentDisposition sets the stored Content-Disposition header.
func WithContentDisposition(disposition string) Option {
	return func(o *Options) { o.ContentDisposition = disposition }
}

// WithCacheControl sets the stored Cache-Control header.
func WithCacheControl(cacheControl string) Option {
	return func(o *Options) { o.CacheControl = cacheControl }
}

// WithMetadata attaches key/value metadata to the file.
func WithMetadata(metadata map[string]string) Option {
	return func(o *Options) { o.Metadata = metadata }
}

// WithHeaders sets extra HTTP headers on backends that accept them.
func WithHeaders(headers map[string]string) Option {
	return func(o *Options) { o.Headers = headers }
}

// WithVisibility controls who may fetch the stored file.
func WithVisibility(visibility Visibility) Option {
	return func(o *Options) { o.Visibility = visibility }
}

// WithACL selects a backend-specific canned ACL.
func WithACL(acl string) Option {
	return func(o *Options) { o.ACL = acl }
}

// WithOverwrite permits replacing an existing file.
func WithOverwrite(overwrite bool) Option {
	return func(o *Options) { o.Overwrite = overwrite }
}

// WithSkipExistingCheck drops the pre-write existence probe. Use it to
// save a round-trip on backends where the probe is a network call (S3
// issues a HeadObject).
func WithSkipExistingCheck(skip bool) Option {
	return func(o *Options) { o.SkipExistingCheck = skip }
}

// WithPreserveFilename keeps the client-supplied filename instead of a
// generated name.
func WithPreserveFilename(preserve bool) Option {
	return func(o *Options) { o.PreserveFilename = preserve }
}

// WithExpires sets the file's expiration timestamp.
func WithExpires(expires time.Time) Option {
	return func(o *Options) { o.Expires = &expires }
}

// WithEncryption encrypts this write with an explicit cipher and key.
func WithEncryption(algorithm string, key []byte) Option {
	return func(o *Options) {
		o.Encryption = &EncryptionOptions{Algorithm: algorithm, Key: key}
	}
}

// WithEncryptionKeyID encrypts this write with a tagged key, for setups
// that rotate keys.
func WithEncryptionKeyID(algorithm string, key []byte, keyID string) Option {
	return func(o *Options) {
		o.Encryption = &EncryptionOptions{Algorithm: algorithm, Key: key, KeyID: keyID}
	}
}

// WithValidator replaces the filesystem-level validator for this write.
func WithValidator(validator filevalidator.Validator) Option {
	return func(o *Options) { o.Validator = validator }
}
