package config

import "time"

// Source types for relationship loading
const (
	SourceTypeMemory   = "memory"
	SourceTypeFile     = "file"
	SourceTypeS3       = "s3"
	SourceTypeDynamoDB = "dynamodb"
	SourceTypeEC2      = "ec2"
)

// Propagation defaults
const (
	DefaultMaxPropagationDepth       = 5
	DefaultConfidenceThreshold       = 0.7
	DefaultBreachMaxPropagationDepth = 3
	DefaultBreachConfidenceThreshold = 0.8
	MaxAllowedPropagationDepth       = 50
)

// Traversal bounds
const (
	DefaultMaxPathDepth  = 10
	DefaultMaxCycleDepth = 1000
)

// Service defaults
const (
	DefaultWorkers  = 4
	DefaultTimeout  = 2 * time.Minute
	DefaultFilePath = "~/.netcmdb/relationships.json"
	DefaultS3Key    = "relationships.json"
)

// Environment variable names
const (
	EnvMaxPropagationDepth = "NETCMDB_MAX_PROPAGATION_DEPTH"
	EnvConfidenceThreshold = "NETCMDB_CONFIDENCE_THRESHOLD"
	EnvMaxPathDepth        = "NETCMDB_MAX_PATH_DEPTH"
	EnvMaxCycleDepth       = "NETCMDB_MAX_CYCLE_DEPTH"
	EnvWorkers             = "NETCMDB_WORKERS"
	EnvTimeout             = "NETCMDB_TIMEOUT"
	EnvIncludeInactive     = "NETCMDB_INCLUDE_INACTIVE"
	EnvSource              = "NETCMDB_SOURCE"
	EnvFilePath            = "NETCMDB_FILE_PATH"
	EnvS3Bucket            = "NETCMDB_S3_BUCKET"
	EnvS3Key               = "NETCMDB_S3_KEY"
	EnvS3Region            = "NETCMDB_S3_REGION"
	EnvS3Endpoint          = "NETCMDB_S3_ENDPOINT"
	EnvDynamoDBTable       = "NETCMDB_DYNAMODB_TABLE"
	EnvDynamoDBRegion      = "NETCMDB_DYNAMODB_REGION"
	EnvDynamoDBEndpoint    = "NETCMDB_DYNAMODB_ENDPOINT"
	EnvEC2Region           = "NETCMDB_EC2_REGION"
	EnvEC2Endpoint         = "NETCMDB_EC2_ENDPOINT"
)

// DefaultLocalStackURL is the default URL for LocalStack.
const DefaultLocalStackURL = "http://localhost:4566"
