//go:build !integration
// +build !integration

package config

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnalysisConfig(t *testing.T) {
	t.Parallel()
	cfg := NewAnalysisConfig()

	assert.Equal(t, 5, cfg.MaxPropagationDepth)
	assert.InDelta(t, 0.7, cfg.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 3, cfg.BreachMaxPropagationDepth)
	assert.InDelta(t, 0.8, cfg.BreachConfidenceThreshold, 1e-9)
	assert.Equal(t, 10, cfg.MaxPathDepth)
	assert.Equal(t, 1000, cfg.MaxCycleDepth)
	assert.Equal(t, SourceTypeFile, cfg.Source.Type)
	assert.False(t, cfg.IncludeInactive)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	// Cannot use t.Parallel() with t.Setenv()
	t.Setenv(EnvMaxPropagationDepth, "7")
	t.Setenv(EnvConfidenceThreshold, "0.5")
	t.Setenv(EnvWorkers, "8")
	t.Setenv(EnvTimeout, "30s")
	t.Setenv(EnvIncludeInactive, "yes")
	t.Setenv(EnvSource, "DynamoDB")
	t.Setenv(EnvDynamoDBTable, "relationships")
	t.Setenv(EnvDynamoDBEndpoint, DefaultLocalStackURL)

	cfg := NewAnalysisConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 7, cfg.MaxPropagationDepth)
	assert.InDelta(t, 0.5, cfg.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.IncludeInactive)
	assert.Equal(t, SourceTypeDynamoDB, cfg.Source.Type)
	assert.Equal(t, "relationships", cfg.Source.DynamoDB.Table)
	assert.Equal(t, DefaultLocalStackURL, cfg.Source.DynamoDB.Endpoint)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "depth", key: EnvMaxPropagationDepth, value: "deep"},
		{name: "threshold", key: EnvConfidenceThreshold, value: "high"},
		{name: "timeout", key: EnvTimeout, value: "soon"},
		{name: "include inactive", key: EnvIncludeInactive, value: "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := NewAnalysisConfig().LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*AnalysisConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*AnalysisConfig) {}},
		{name: "negative depth", mutate: func(c *AnalysisConfig) { c.MaxPropagationDepth = -1 }, wantErr: "max propagation depth"},
		{name: "depth over limit", mutate: func(c *AnalysisConfig) { c.MaxPropagationDepth = 51 }, wantErr: "max propagation depth"},
		{name: "threshold above one", mutate: func(c *AnalysisConfig) { c.ConfidenceThreshold = 1.5 }, wantErr: "confidence threshold"},
		{name: "NaN threshold", mutate: func(c *AnalysisConfig) { c.ConfidenceThreshold = math.NaN() }, wantErr: "confidence threshold"},
		{name: "NaN breach threshold", mutate: func(c *AnalysisConfig) { c.BreachConfidenceThreshold = math.NaN() }, wantErr: "breach confidence threshold"},
		{name: "zero path depth", mutate: func(c *AnalysisConfig) { c.MaxPathDepth = 0 }, wantErr: "max path depth"},
		{name: "zero workers", mutate: func(c *AnalysisConfig) { c.Workers = 0 }, wantErr: "workers"},
		{name: "unknown source", mutate: func(c *AnalysisConfig) { c.Source.Type = "ftp" }, wantErr: "invalid source type"},
		{name: "s3 without bucket", mutate: func(c *AnalysisConfig) { c.Source.Type = SourceTypeS3 }, wantErr: "S3 bucket"},
		{name: "dynamodb without table", mutate: func(c *AnalysisConfig) { c.Source.Type = SourceTypeDynamoDB }, wantErr: "DynamoDB table"},
		{name: "ec2 needs nothing", mutate: func(c *AnalysisConfig) { c.Source.Type = SourceTypeEC2 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewAnalysisConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeOptions(t *testing.T) {
	t.Parallel()

	t.Run("weakly typed strings", func(t *testing.T) {
		t.Parallel()
		o, err := DecodeOptions(map[string]interface{}{
			"max_propagation_depth": "3",
			"confidence_threshold":  "0.9",
		})
		require.NoError(t, err)
		require.NotNil(t, o.MaxPropagationDepth)
		require.NotNil(t, o.ConfidenceThreshold)
		assert.Equal(t, 3, *o.MaxPropagationDepth)
		assert.InDelta(t, 0.9, *o.ConfidenceThreshold, 1e-9)
		assert.Nil(t, o.IncludeInactive)

		cfg := NewAnalysisConfig().WithOverrides(o)
		assert.Equal(t, 3, cfg.MaxPropagationDepth)
		assert.InDelta(t, 0.9, cfg.ConfidenceThreshold, 1e-9)
	})

	t.Run("zero threshold is kept", func(t *testing.T) {
		t.Parallel()
		o, err := DecodeOptions(map[string]interface{}{"confidence_threshold": 0})
		require.NoError(t, err)
		cfg := NewAnalysisConfig().WithOverrides(o)
		assert.InDelta(t, 0.0, cfg.ConfidenceThreshold, 1e-9)
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()
		_, err := DecodeOptions(map[string]interface{}{"depth": 2})
		require.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		o, err := DecodeOptions(nil)
		require.NoError(t, err)
		assert.Nil(t, o.MaxPropagationDepth)
	})
}

func TestWithOverridesDoesNotMutate(t *testing.T) {
	t.Parallel()
	depth := 9
	base := NewAnalysisConfig()
	_ = base.WithOverrides(SimulationOverrides{MaxPropagationDepth: &depth})
	assert.Equal(t, DefaultMaxPropagationDepth, base.MaxPropagationDepth)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "netcmdb.yaml")
	content := `
max_propagation_depth: 4
timeout: 45s
source:
  type: s3
  s3:
    bucket: cmdb-exports
    region: us-east-1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := NewAnalysisConfig()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, 4, cfg.MaxPropagationDepth)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, SourceTypeS3, cfg.Source.Type)
	assert.Equal(t, "cmdb-exports", cfg.Source.S3.Bucket)
	assert.Equal(t, DefaultS3Key, cfg.Source.S3.Key)
	assert.InDelta(t, DefaultConfidenceThreshold, cfg.ConfidenceThreshold, 1e-9)
	require.NoError(t, cfg.Validate())
}

func TestExpandPaths(t *testing.T) {
	t.Parallel()
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Cannot get home directory: %v", err)
	}

	cfg := NewAnalysisConfig()
	require.NoError(t, cfg.ExpandPaths())
	assert.Equal(t, filepath.Join(home, ".netcmdb", "relationships.json"), cfg.Source.File.Path)
}

func TestToJSONAndSanitized(t *testing.T) {
	t.Parallel()
	cfg := NewAnalysisConfig()
	cfg.Source.Type = SourceTypeS3
	cfg.Source.S3.Bucket = "secret-bucket"

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(cfg.ToJSON()), &decoded))
	assert.Contains(t, decoded, "source")

	sanitized := cfg.GetSanitized()
	assert.Equal(t, true, sanitized["s3_bucket_configured"])
	for _, v := range sanitized {
		assert.NotEqual(t, "secret-bucket", v)
	}
}
