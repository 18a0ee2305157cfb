// Package awsclient loads AWS SDK configuration for the stores and discovery,
// switching to static test credentials when pointed at LocalStack.
package awsclient

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Environment variables that mark a LocalStack run
const (
	EnvUseLocalStack      = "NETCMDB_USE_LOCALSTACK"
	EnvLocalStackEndpoint = "LOCALSTACK_ENDPOINT"
)

// IsLocalEndpoint reports whether endpoint (or the environment) points at
// LocalStack or another local emulator
func IsLocalEndpoint(endpoint string) bool {
	if endpoint != "" {
		lower := strings.ToLower(endpoint)
		if strings.Contains(lower, "localstack") || strings.Contains(lower, "localhost") ||
			strings.Contains(lower, "127.0.0.1") {
			return true
		}
	}
	return os.Getenv(EnvUseLocalStack) == "true" || os.Getenv(EnvLocalStackEndpoint) != ""
}

// LoadConfig loads the default AWS config for region. Local endpoints get
// static "test" credentials so no real account is needed.
func LoadConfig(ctx context.Context, region, endpoint string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if IsLocalEndpoint(endpoint) {
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
		)
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}
