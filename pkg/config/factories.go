package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/driveio/fedfs/internal/logger"
	"github.com/driveio/fedfs/pkg/content"
	contentFs "github.com/driveio/fedfs/pkg/content/fs"
	contentMemory "github.com/driveio/fedfs/pkg/content/memory"
	"github.com/driveio/fedfs/pkg/localdb"
	"github.com/driveio/fedfs/pkg/store/provider"
	providerMemory "github.com/driveio/fedfs/pkg/store/provider/memory"
	providerS3 "github.com/driveio/fedfs/pkg/store/provider/s3"
)

// OpenDatabase opens the local database from configuration.
func OpenDatabase(cfg *DatabaseConfig) (*localdb.DB, error) {
	return localdb.Open(localdb.Options{
		Path:     cfg.Path,
		InMemory: cfg.InMemory,
	})
}

// CreateContentRepository creates the blob repository selected by
// configuration.
func CreateContentRepository(ctx context.Context, cfg *ContentConfig) (content.Repository, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemRepository(cfg.Filesystem)
	case "memory":
		return contentMemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown content repository type: %q", cfg.Type)
	}
}

func createFilesystemRepository(options map[string]any) (content.Repository, error) {
	type fsRepositoryConfig struct {
		Path string `mapstructure:"path"`
	}

	var repoCfg fsRepositoryConfig
	if err := mapstructure.Decode(options, &repoCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem content config: %w", err)
	}
	if repoCfg.Path == "" {
		return nil, fmt.Errorf("filesystem content repository: path is required")
	}

	repo, err := contentFs.New(repoCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem content repository: %w", err)
	}
	return repo, nil
}

// CreateProviderClient creates the backend client for one provider account.
func CreateProviderClient(ctx context.Context, cfg *ProviderConfig) (provider.Client, error) {
	switch cfg.Type {
	case "memory":
		return providerMemory.New(), nil
	case "s3":
		return createS3ProviderClient(ctx, cfg.Key, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown provider type: %q", cfg.Type)
	}
}

func createS3ProviderClient(ctx context.Context, key string, options map[string]any) (provider.Client, error) {
	type s3ProviderConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var clientCfg s3ProviderConfig
	if err := mapstructure.Decode(options, &clientCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 provider config: %w", err)
	}
	if clientCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 provider %s: bucket is required", key)
	}
	if clientCfg.Region == "" {
		return nil, fmt.Errorf("S3 provider %s: region is required", key)
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(clientCfg.Region))

	if clientCfg.AccessKeyID != "" && clientCfg.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(clientCfg.AccessKeyID, clientCfg.SecretAccessKey, ""),
		))
	}

	maxRetries := clientCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	sdk := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if clientCfg.Endpoint != "" {
			// Custom endpoints (MinIO, Localstack) need path-style keys.
			o.BaseEndpoint = aws.String(clientCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	client, err := providerS3.New(providerS3.Config{
		Client:    sdk,
		Bucket:    clientCfg.Bucket,
		KeyPrefix: clientCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 provider client: %w", err)
	}

	logger.Info("S3 provider %s initialized: bucket=%s, region=%s, prefix=%s",
		key, clientCfg.Bucket, clientCfg.Region, clientCfg.KeyPrefix)
	return client, nil
}
