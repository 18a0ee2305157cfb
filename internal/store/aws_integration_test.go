//go:build integration
// +build integration

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netcmdb/netcmdb/internal/config"
	"github.com/netcmdb/netcmdb/internal/interfaces"
	"github.com/netcmdb/netcmdb/internal/testutil"
)

const testRegion = "us-east-1"

func TestS3StoreLocalStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ls := testutil.SetupLocalStackWithServices(t, "s3,sts")
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	bucket := fmt.Sprintf("netcmdb-test-%d", time.Now().UnixNano())
	s, err := NewS3Store(ctx, S3StoreConfig{Bucket: bucket, Region: testRegion, Endpoint: ls.Endpoint})
	require.NoError(t, err)

	_, err = s.client.(*s3.Client).CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)

	records, err := s.ListRelationships(ctx, interfaces.RelationshipFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, s.Save(ctx, sampleRecords()))

	records, err = s.ListRelationships(ctx, interfaces.RelationshipFilter{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "r1", records[0].ID)
}

func TestDynamoDBStoreLocalStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ls := testutil.SetupLocalStackWithServices(t, "dynamodb,sts")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	cfg := config.NewAnalysisConfig()
	cfg.Source.Type = config.SourceTypeDynamoDB
	cfg.Source.DynamoDB = config.DynamoDBSource{
		Table:    fmt.Sprintf("netcmdb-test-%d", time.Now().UnixNano()),
		Region:   testRegion,
		Endpoint: ls.Endpoint,
	}

	rs, err := New(ctx, cfg)
	require.NoError(t, err)
	s, ok := rs.(*DynamoDBStore)
	require.True(t, ok)

	require.NoError(t, s.EnsureTable(ctx))
	require.NoError(t, s.EnsureTable(ctx), "second call finds the table")
	require.NoError(t, s.Save(ctx, sampleRecords()))

	records, err := s.ListRelationships(ctx, interfaces.RelationshipFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, sampleRecords()[0], records[0])

	records, err = s.ListRelationships(ctx, interfaces.RelationshipFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
