package uploadkit

import (
	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Default driver to use (local, memory, s3)
	Driver string `env:"UPLOADKIT_DRIVER,default:local"`

	// Local driver configuration
	LocalBasePath string `env:"UPLOADKIT_LOCAL_BASE_PATH,default:./storage"`

	// S3 driver configuration
	S3Region          string `env:"UPLOADKIT_S3_REGION,default:us-east-1"`
	S3Bucket          string `env:"UPLOADKIT_S3_BUCKET"`
	S3Prefix          string `env:"UPLOADKIT_S3_PREFIX"`
	S3Endpoint        string `env:"UPLOADKIT_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"UPLOADKIT_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"UPLOADKIT_S3_SECRET_ACCESS_KEY"`
	S3ForcePathStyle  bool   `env:"UPLOADKIT_S3_FORCE_PATH_STYLE,default:false"`

	// Default upload options
	DefaultVisibility       string `env:"UPLOADKIT_DEFAULT_VISIBILITY,default:private"`
	DefaultCacheControl     string `env:"UPLOADKIT_DEFAULT_CACHE_CONTROL"`
	DefaultOverwrite        bool   `env:"UPLOADKIT_DEFAULT_OVERWRITE,default:false"`
	DefaultPreserveFilename bool   `env:"UPLOADKIT_DEFAULT_PRESERVE_FILENAME,default:false"`

	// File validation defaults
	MaxFileSize       int64  `env:"UPLOADKIT_MAX_FILE_SIZE,default:10485760"` // 10MB default
	AllowedMimeTypes  string `env:"UPLOADKIT_ALLOWED_MIME_TYPES"`             // comma-separated
	AllowedExtensions string `env:"UPLOADKIT_ALLOWED_EXTENSIONS"`             // comma-separated
	BlockedExtensions string `env:"UPLOADKIT_BLOCKED_EXTENSIONS"`             // comma-separated, appended to the built-in denylist
	ScanForMalware    bool   `env:"UPLOADKIT_SCAN_FOR_MALWARE,default:false"`

	// Intake settings
	HistoryLimit   int    `env:"UPLOADKIT_HISTORY_LIMIT,default:1000"`
	PipelineStages string `env:"UPLOADKIT_PIPELINE_STAGES"` // e.g. "scan:200ms,convert:500ms,index:100ms"

	// Encryption settings
	EncryptionEnabled   bool   `env:"UPLOADKIT_ENCRYPTION_ENABLED,default:false"`
	EncryptionAlgorithm string `env:"UPLOADKIT_ENCRYPTION_ALGORITHM,default:AES-256-GCM"`
	EncryptionKey       string `env:"UPLOADKIT_ENCRYPTION_KEY"` // base64-encoded 32-byte key
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
