package uploadkit

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/gobeaver/beaver-kit/config"
	"github.com/gobeaver/uploadkit/filevalidator"
)

// Process-wide default instance, built once.
var (
	defaultFS   FileSystem
	defaultOnce sync.Once
	defaultErr  error
)

// Builder constructs filesystems from environment configuration read
// under a custom prefix, for processes that host several instances.
type Builder struct {
	prefix string
}

// WithPrefix returns a Builder that reads configuration with the given
// environment prefix.
func WithPrefix(prefix string) *Builder { return &Builder{prefix: prefix} }

func (b *Builder) load() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init initializes the global instance from the builder's environment.
func (b *Builder) Init() error {
	cfg, err := b.load()
	if err != nil {
		return err
	}
	return Init(cfg)
}

// New builds a filesystem from the builder's environment.
func (b *Builder) New() (FileSystem, error) {
	cfg, err := b.load()
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// Init builds the global instance. Without an explicit config it reads
// the environment. Only the first call does anything; later calls
// return the first result.
func Init(configs ...*Config) error {
	defaultOnce.Do(func() {
		cfg := &Config{}
		if len(configs) > 0 {
			cfg = configs[0]
		} else if cfg, defaultErr = GetConfig(); defaultErr != nil {
			return
		}
		defaultFS, defaultErr = New(cfg)
	})
	return defaultErr
}

// New builds a filesystem from the config.
//
// The result is layered: driver at the bottom, then encryption when
// enabled, then validation, then preset write options. Validation sits
// above encryption so rejected content is never encrypted and written.
func New(cfg *Config) (FileSystem, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fs, err := CreateDriver(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	fs, err = wrapEncryption(fs, cfg)
	if err != nil {
		return nil, err
	}

	fs = NewValidatedFileSystem(fs, validatorFromConfig(cfg))

	if presets := defaultWriteOptions(cfg); len(presets) > 0 {
		fs = &presetFS{FileSystem: fs, presets: presets}
	}
	return fs, nil
}

// validateConfig rejects configs the drivers cannot work with.
func validateConfig(cfg *Config) error {
	switch cfg.Driver {
	case "":
		return errors.New("driver is required")
	case "local":
		if cfg.LocalBasePath == "" {
			return errors.New("local base path is required for local driver")
		}
	case "memory":
	case "s3":
		// Access keys may come from IAM roles, so only the bucket is
		// mandatory.
		if cfg.S3Bucket == "" {
			return errors.New("S3 bucket is required for S3 driver")
		}
	default:
		return fmt.Errorf("unknown driver: %s", cfg.Driver)
	}
	return nil
}

// wrapEncryption layers AES-GCM encryption when configured. The key is
// base64 and must decode to 32 bytes.
func wrapEncryption(fs FileSystem, cfg *Config) (FileSystem, error) {
	if !cfg.EncryptionEnabled || cfg.EncryptionKey == "" {
		return fs, nil
	}

	key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (got %d bytes)", len(key))
	}

	encrypted, err := NewEncryptedFS(fs, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted filesystem: %w", err)
	}
	return encrypted, nil
}

// validatorFromConfig builds the intake validator, starting from the
// default constraints and tightening them with whatever the config sets.
func validatorFromConfig(cfg *Config) filevalidator.Validator {
	constraints := filevalidator.DefaultConstraints()

	if cfg.MaxFileSize > 0 {
		constraints.MaxFileSize = cfg.MaxFileSize
	}
	if cfg.AllowedMimeTypes != "" {
		constraints.AcceptedTypes = csvList(cfg.AllowedMimeTypes)
	}
	if cfg.AllowedExtensions != "" {
		constraints.AllowedExts = csvList(cfg.AllowedExtensions)
	}
	if cfg.BlockedExtensions != "" {
		// Configured patterns extend the built-in denylist, never
		// replace it.
		constraints.BlockedExts = append(constraints.BlockedExts, csvList(cfg.BlockedExtensions)...)
	}
	constraints.ScanForMalware = cfg.ScanForMalware

	return filevalidator.New(constraints)
}

// csvList splits a comma-separated config value into trimmed entries.
func csvList(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// defaultWriteOptions translates the configured write defaults into
// options. An empty result means no preset layer is needed.
func defaultWriteOptions(cfg *Config) []Option {
	var options []Option
	if cfg.DefaultVisibility != "" {
		options = append(options, WithVisibility(Visibility(cfg.DefaultVisibility)))
	}
	if cfg.DefaultCacheControl != "" {
		options = append(options, WithCacheControl(cfg.DefaultCacheControl))
	}
	if cfg.DefaultOverwrite {
		options = append(options, WithOverwrite(true))
	}
	if cfg.DefaultPreserveFilename {
		options = append(options, WithPreserveFilename(true))
	}
	return options
}

// FS returns the global instance, initializing it from the environment
// on first use. Initialization errors are swallowed here; use Default
// to see them.
func FS() FileSystem {
	_ = Init()
	return defaultFS
}

// Default returns the global instance, initializing it from the
// environment on first use.
func Default() (FileSystem, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return defaultFS, nil
}

// NewFromEnv builds a filesystem from environment variables.
func NewFromEnv() (FileSystem, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// InitFromEnv initializes the global instance from environment
// variables.
func InitFromEnv() error { return Init() }

// Reset clears the global instance so tests can reinitialize it.
func Reset() {
	defaultFS, defaultErr = nil, nil
	defaultOnce = sync.Once{}
}

// presetFS injects configured default options under every write.
// Caller options come last, so they win over the presets. Everything
// but Write is promoted from the embedded filesystem.
type presetFS struct {
	FileSystem
	presets []Option
}

func (p *presetFS) Write(ctx context.Context, path string, content io.Reader, options ...Option) (*WriteResult, error) {
	return p.FileSystem.Write(ctx, path, content, slices.Concat(p.presets, options)...)
}

var _ FileSystem = (*presetFS)(nil)
