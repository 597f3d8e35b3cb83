package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gobeaver/uploadkit"
)

// The adapter self-registers so uploadkit.New can build it from
// Config.Driver alone.
func init() {
	uploadkit.RegisterDriver("s3", fromConfig)
}

func fromConfig(cfg *uploadkit.Config) (uploadkit.FileSystem, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	client, err := clientFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	var opts []AdapterOption
	if cfg.S3Prefix != "" {
		opts = append(opts, WithPrefix(cfg.S3Prefix))
	}
	return New(client, cfg.S3Bucket, opts...), nil
}

// clientFromConfig builds the SDK client. Explicit credentials override
// the default chain; BaseEndpoint and path-style addressing cover
// S3-compatible stores such as MinIO and LocalStack.
func clientFromConfig(cfg *uploadkit.Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, err
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3ForcePathStyle
	}), nil
}
