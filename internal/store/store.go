// Package store provides RelationshipStore adapters that load relationship
// records from memory, local files, S3 objects and DynamoDB tables.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/netcmdb/netcmdb/internal/config"
	"github.com/netcmdb/netcmdb/internal/discovery"
	"github.com/netcmdb/netcmdb/internal/interfaces"
)

// Format is the serialization of a relationship export
type Format string

// Supported export formats
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// maxExportSize limits how much of an export is read into memory
const maxExportSize = 64 * 1024 * 1024

// FormatForPath picks the format from a file or object key extension.
// Anything that is not .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// export is the on-disk envelope. A bare list of records is also accepted.
type export struct {
	Relationships []interfaces.RelationshipRecord `json:"relationships" yaml:"relationships"`
}

// DecodeRecords parses a relationship export
func DecodeRecords(data []byte, format Format) ([]interfaces.RelationshipRecord, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return []interfaces.RelationshipRecord{}, nil
	}

	switch format {
	case FormatYAML:
		var list []interfaces.RelationshipRecord
		if err := yaml.Unmarshal(data, &list); err == nil {
			return list, nil
		}
		var env export
		if err := yaml.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("failed to parse YAML relationships: %w", err)
		}
		return env.Relationships, nil
	default:
		if strings.HasPrefix(trimmed, "[") {
			var list []interfaces.RelationshipRecord
			if err := json.Unmarshal(data, &list); err != nil {
				return nil, fmt.Errorf("failed to parse JSON relationships: %w", err)
			}
			return list, nil
		}
		var env export
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("failed to parse JSON relationships: %w", err)
		}
		return env.Relationships, nil
	}
}

// EncodeRecords serializes records inside the export envelope
func EncodeRecords(records []interfaces.RelationshipRecord, format Format) ([]byte, error) {
	env := export{Relationships: records}
	if env.Relationships == nil {
		env.Relationships = []interfaces.RelationshipRecord{}
	}

	if format == FormatYAML {
		data, err := yaml.Marshal(env)
		if err != nil {
			return nil, fmt.Errorf("failed to encode YAML relationships: %w", err)
		}
		return data, nil
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON relationships: %w", err)
	}
	return data, nil
}

// New creates the relationship store selected by cfg.Source.Type
func New(ctx context.Context, cfg *config.AnalysisConfig) (interfaces.RelationshipStore, error) {
	src := cfg.Source
	switch src.Type {
	case config.SourceTypeMemory:
		return NewMemoryStore(), nil
	case config.SourceTypeFile, "":
		return NewFileStore(src.File.Path), nil
	case config.SourceTypeS3:
		return NewS3Store(ctx, S3StoreConfig{
			Bucket:   src.S3.Bucket,
			Key:      src.S3.Key,
			Region:   src.S3.Region,
			Endpoint: src.S3.Endpoint,
		})
	case config.SourceTypeDynamoDB:
		return NewDynamoDBStore(ctx, DynamoDBStoreConfig{
			Table:    src.DynamoDB.Table,
			Region:   src.DynamoDB.Region,
			Endpoint: src.DynamoDB.Endpoint,
		})
	case config.SourceTypeEC2:
		return discovery.NewEC2Discoverer(ctx, discovery.EC2Config{
			Region:   src.EC2.Region,
			Endpoint: src.EC2.Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown relationship source type %q", src.Type)
	}
}
