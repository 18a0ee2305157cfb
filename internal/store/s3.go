package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/netcmdb/netcmdb/internal/awsclient"
	"github.com/netcmdb/netcmdb/internal/config"
	"github.com/netcmdb/netcmdb/internal/interfaces"
	"github.com/netcmdb/netcmdb/pkg/logging"
)

// s3Timeout bounds a single object operation
const s3Timeout = 30 * time.Second

// S3API is the subset of the S3 client the store uses
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3StoreConfig holds the location of a relationship export in S3
type S3StoreConfig struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	Region   string `json:"region"`
	Endpoint string `json:"endpoint,omitempty"` // For LocalStack or custom endpoints
}

// S3Store reads a relationship export stored as a single S3 object
type S3Store struct {
	client S3API
	bucket string
	key    string
}

// NewS3Store creates an S3 store from the default AWS credential chain
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	awsCfg, err := awsclient.LoadConfig(ctx, cfg.Region, cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for LocalStack
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Key), nil
}

// NewS3StoreWithClient creates an S3 store over an existing client
func NewS3StoreWithClient(client S3API, bucket, key string) *S3Store {
	if key == "" {
		key = config.DefaultS3Key
	}
	return &S3Store{client: client, bucket: bucket, key: key}
}

func (s *S3Store) location() string {
	return "s3://" + s.bucket + "/" + s.key
}

// ListRelationships implements interfaces.RelationshipStore. A missing object
// yields no records.
func (s *S3Store) ListRelationships(ctx context.Context, filter interfaces.RelationshipFilter) ([]interfaces.RelationshipRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s3Timeout)
	defer cancel()

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			logging.Store.Warn("Relationship object %s does not exist", s.location())
			return []interfaces.RelationshipRecord{}, nil
		}
		logging.StoreError("list", s.location(), err)
		return nil, fmt.Errorf("failed to get relationships from S3: %w", err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(result.Body, maxExportSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read relationships from S3: %w", err)
	}

	records, err := DecodeRecords(data, FormatForPath(s.key))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.location(), err)
	}

	out := filter.Apply(records)
	logging.StoreOperation("list", s.location(), len(out))
	return out, nil
}

// Save uploads records as the export object
func (s *S3Store) Save(ctx context.Context, records []interfaces.RelationshipRecord) error {
	format := FormatForPath(s.key)
	data, err := EncodeRecords(records, format)
	if err != nil {
		return err
	}

	contentType := "application/json"
	if format == FormatYAML {
		contentType = "application/yaml"
	}

	ctx, cancel := context.WithTimeout(ctx, s3Timeout)
	defer cancel()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"record-count": fmt.Sprintf("%d", len(records)),
			"saved-at":     time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		logging.StoreError("save", s.location(), err)
		return fmt.Errorf("failed to save relationships to S3: %w", err)
	}

	logging.StoreOperation("save", s.location(), len(records))
	return nil
}
