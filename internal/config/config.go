// Package config holds analysis configuration for netcmdb
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AppVersion is the application version, can be set at build time
var AppVersion = "dev"

// AnalysisConfig holds all configuration for graph analysis runs
type AnalysisConfig struct {
	// Impact propagation
	MaxPropagationDepth       int     `json:"max_propagation_depth" mapstructure:"max_propagation_depth"`
	ConfidenceThreshold       float64 `json:"confidence_threshold" mapstructure:"confidence_threshold"`
	BreachMaxPropagationDepth int     `json:"breach_max_propagation_depth" mapstructure:"breach_max_propagation_depth"`
	BreachConfidenceThreshold float64 `json:"breach_confidence_threshold" mapstructure:"breach_confidence_threshold"`

	// Traversal bounds
	MaxPathDepth  int `json:"max_path_depth" mapstructure:"max_path_depth"`
	MaxCycleDepth int `json:"max_cycle_depth" mapstructure:"max_cycle_depth"`

	// Fan-out
	Workers int           `json:"workers" mapstructure:"workers"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	IncludeInactive bool `json:"include_inactive" mapstructure:"include_inactive"`

	Source SourceConfig `json:"source" mapstructure:"source"`
}

// SourceConfig selects where relationship records are loaded from
type SourceConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	File     FileSource     `json:"file" mapstructure:"file"`
	S3       S3Source       `json:"s3" mapstructure:"s3"`
	DynamoDB DynamoDBSource `json:"dynamodb" mapstructure:"dynamodb"`
	EC2      EC2Source      `json:"ec2" mapstructure:"ec2"`
}

// FileSource holds the path of a JSON or YAML relationship export
type FileSource struct {
	Path string `json:"path" mapstructure:"path"`
}

// S3Source holds the location of a relationship export in S3
type S3Source struct {
	Bucket   string `json:"bucket" mapstructure:"bucket"`
	Key      string `json:"key" mapstructure:"key"`
	Region   string `json:"region" mapstructure:"region"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
}

// DynamoDBSource holds the relationship table settings
type DynamoDBSource struct {
	Table    string `json:"table" mapstructure:"table"`
	Region   string `json:"region" mapstructure:"region"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
}

// EC2Source holds settings for live EC2 discovery
type EC2Source struct {
	Region   string `json:"region" mapstructure:"region"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
}

// NewAnalysisConfig creates a new analysis configuration with defaults
func NewAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		MaxPropagationDepth:       DefaultMaxPropagationDepth,
		ConfidenceThreshold:       DefaultConfidenceThreshold,
		BreachMaxPropagationDepth: DefaultBreachMaxPropagationDepth,
		BreachConfidenceThreshold: DefaultBreachConfidenceThreshold,
		MaxPathDepth:              DefaultMaxPathDepth,
		MaxCycleDepth:             DefaultMaxCycleDepth,
		Workers:                   DefaultWorkers,
		Timeout:                   DefaultTimeout,
		Source: SourceConfig{
			Type: SourceTypeFile,
			File: FileSource{Path: DefaultFilePath},
			S3:   S3Source{Key: DefaultS3Key},
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *AnalysisConfig) LoadFromEnv() error { //nolint:gocognit,gocyclo // one branch per variable
	var err error

	if v := os.Getenv(EnvMaxPropagationDepth); v != "" {
		if c.MaxPropagationDepth, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid %s value: %s", EnvMaxPropagationDepth, v)
		}
	}
	if v := os.Getenv(EnvConfidenceThreshold); v != "" {
		if c.ConfidenceThreshold, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("invalid %s value: %s", EnvConfidenceThreshold, v)
		}
	}
	if v := os.Getenv(EnvMaxPathDepth); v != "" {
		if c.MaxPathDepth, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid %s value: %s", EnvMaxPathDepth, v)
		}
	}
	if v := os.Getenv(EnvMaxCycleDepth); v != "" {
		if c.MaxCycleDepth, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid %s value: %s", EnvMaxCycleDepth, v)
		}
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		if c.Workers, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid %s value: %s", EnvWorkers, v)
		}
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		if c.Timeout, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s value: %s", EnvTimeout, v)
		}
	}
	if v := os.Getenv(EnvIncludeInactive); v != "" {
		b, ok := parseBool(v)
		if !ok {
			return fmt.Errorf("invalid %s value: %s", EnvIncludeInactive, v)
		}
		c.IncludeInactive = b
	}

	// Source
	if v := os.Getenv(EnvSource); v != "" {
		c.Source.Type = strings.ToLower(v)
	}
	if v := os.Getenv(EnvFilePath); v != "" {
		c.Source.File.Path = v
	}
	if v := os.Getenv(EnvS3Bucket); v != "" {
		c.Source.S3.Bucket = v
	}
	if v := os.Getenv(EnvS3Key); v != "" {
		c.Source.S3.Key = v
	}
	if v := os.Getenv(EnvS3Region); v != "" {
		c.Source.S3.Region = v
	}
	if v := os.Getenv(EnvS3Endpoint); v != "" {
		c.Source.S3.Endpoint = v
	}
	if v := os.Getenv(EnvDynamoDBTable); v != "" {
		c.Source.DynamoDB.Table = v
	}
	if v := os.Getenv(EnvDynamoDBRegion); v != "" {
		c.Source.DynamoDB.Region = v
	}
	if v := os.Getenv(EnvDynamoDBEndpoint); v != "" {
		c.Source.DynamoDB.Endpoint = v
	}
	if v := os.Getenv(EnvEC2Region); v != "" {
		c.Source.EC2.Region = v
	}
	if v := os.Getenv(EnvEC2Endpoint); v != "" {
		c.Source.EC2.Endpoint = v
	}

	return nil
}

// ExpandPaths expands ~ in file paths to the home directory
func (c *AnalysisConfig) ExpandPaths() error {
	path, err := expandPath(c.Source.File.Path)
	if err != nil {
		return fmt.Errorf("failed to expand file path: %w", err)
	}
	c.Source.File.Path = path
	return nil
}

// Validate checks if the configuration is valid
func (c *AnalysisConfig) Validate() error { //nolint:gocyclo // flat list of checks
	if c.MaxPropagationDepth < 0 || c.MaxPropagationDepth > MaxAllowedPropagationDepth {
		return fmt.Errorf("max propagation depth must be between 0 and %d, got %d",
			MaxAllowedPropagationDepth, c.MaxPropagationDepth)
	}
	if c.BreachMaxPropagationDepth < 0 || c.BreachMaxPropagationDepth > MaxAllowedPropagationDepth {
		return fmt.Errorf("breach max propagation depth must be between 0 and %d, got %d",
			MaxAllowedPropagationDepth, c.BreachMaxPropagationDepth)
	}
	if math.IsNaN(c.ConfidenceThreshold) || c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be between 0 and 1, got %g", c.ConfidenceThreshold)
	}
	if math.IsNaN(c.BreachConfidenceThreshold) || c.BreachConfidenceThreshold < 0 || c.BreachConfidenceThreshold > 1 {
		return fmt.Errorf("breach confidence threshold must be between 0 and 1, got %g", c.BreachConfidenceThreshold)
	}
	if c.MaxPathDepth < 1 {
		return fmt.Errorf("max path depth must be positive, got %d", c.MaxPathDepth)
	}
	if c.MaxCycleDepth < 1 {
		return fmt.Errorf("max cycle depth must be positive, got %d", c.MaxCycleDepth)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}

	switch c.Source.Type {
	case SourceTypeMemory, SourceTypeEC2:
	case SourceTypeFile:
		if c.Source.File.Path == "" {
			return fmt.Errorf("file path is required when using file source")
		}
	case SourceTypeS3:
		if c.Source.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when using s3 source")
		}
		if c.Source.S3.Key == "" {
			c.Source.S3.Key = DefaultS3Key
		}
	case SourceTypeDynamoDB:
		if c.Source.DynamoDB.Table == "" {
			return fmt.Errorf("DynamoDB table is required when using dynamodb source")
		}
	default:
		return fmt.Errorf("invalid source type: %s", c.Source.Type)
	}

	return nil
}

// ToJSON returns the configuration as a JSON string
func (c *AnalysisConfig) ToJSON() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// GetSanitized returns a version of the config safe for logging
func (c *AnalysisConfig) GetSanitized() map[string]interface{} {
	sanitized := map[string]interface{}{
		"version":               AppVersion,
		"max_propagation_depth": c.MaxPropagationDepth,
		"confidence_threshold":  c.ConfidenceThreshold,
		"max_path_depth":        c.MaxPathDepth,
		"workers":               c.Workers,
		"timeout":               c.Timeout.String(),
		"include_inactive":      c.IncludeInactive,
		"source":                c.Source.Type,
	}

	switch c.Source.Type {
	case SourceTypeS3:
		sanitized["s3_bucket_configured"] = c.Source.S3.Bucket != ""
		sanitized["s3_endpoint_configured"] = c.Source.S3.Endpoint != ""
	case SourceTypeDynamoDB:
		sanitized["dynamodb_table_configured"] = c.Source.DynamoDB.Table != ""
		sanitized["dynamodb_endpoint_configured"] = c.Source.DynamoDB.Endpoint != ""
	case SourceTypeEC2:
		sanitized["ec2_endpoint_configured"] = c.Source.EC2.Endpoint != ""
	}

	return sanitized
}

// parseBool accepts the usual spellings of a boolean flag
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// expandPath expands ~ to the home directory
func expandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	return filepath.Clean(path), nil
}
