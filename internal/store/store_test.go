//go:build !integration
// +build !integration

package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netcmdb/netcmdb/internal/config"
	"github.com/netcmdb/netcmdb/internal/interfaces"
)

func sampleRecords() []interfaces.RelationshipRecord {
	return []interfaces.RelationshipRecord{
		{
			ID:               "r1",
			Source:           interfaces.ResourceRef{Provider: "aws", ResourceType: "subnet", ResourceID: "subnet-1"},
			Target:           interfaces.ResourceRef{Provider: "aws", ResourceType: "vpc", ResourceID: "vpc-1"},
			RelationshipType: "contained_in",
			Strength:         9,
			Confidence:       1,
			IsCritical:       true,
			Status:           interfaces.RelationshipStatusActive,
			Metadata:         map[string]string{"region": "us-east-1"},
			DiscoveredAt:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:               "r2",
			Source:           interfaces.ResourceRef{Provider: "gcp", ResourceType: "instance", ResourceID: "vm-1"},
			Target:           interfaces.ResourceRef{Provider: "gcp", ResourceType: "network", ResourceID: "net-1"},
			RelationshipType: "attached_to",
			Strength:         5,
			Confidence:       0.75,
			Status:           interfaces.RelationshipStatusInactive,
		},
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(sampleRecords()...)
	ctx := context.Background()

	active, err := s.ListRelationships(ctx, interfaces.RelationshipFilter{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "r1", active[0].ID)

	all, err := s.ListRelationships(ctx, interfaces.RelationshipFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	gcp, err := s.ListRelationships(ctx, interfaces.RelationshipFilter{Providers: []string{"GCP"}, IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, gcp, 1)
	assert.Equal(t, "r2", gcp[0].ID)

	s.Replace(nil)
	assert.Zero(t, s.Len())

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.ListRelationships(canceled, interfaces.RelationshipFilter{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStoreConcurrentAdd(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(sampleRecords()[0])
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, s.Len())
}

func TestDecodeRecords(t *testing.T) {
	t.Parallel()

	jsonList := `[{"id":"a","source":{"provider":"aws","resource_type":"vpc","resource_id":"v"},"target":{"provider":"aws","resource_type":"tgw","resource_id":"t"},"strength":3,"confidence":0.5,"status":"active"}]`
	records, err := DecodeRecords([]byte(jsonList), FormatJSON)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "aws:vpc:v", records[0].Source.Key())

	jsonEnvelope := `{"relationships":` + jsonList + `}`
	records, err = DecodeRecords([]byte(jsonEnvelope), FormatJSON)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	yamlEnvelope := `
relationships:
  - id: b
    source: {provider: aws, resource_type: subnet, resource_id: s}
    target: {provider: aws, resource_type: vpc, resource_id: v}
    strength: 9
    confidence: 1
    is_critical: true
    status: active
`
	records, err = DecodeRecords([]byte(yamlEnvelope), FormatYAML)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].IsCritical)

	records, err = DecodeRecords([]byte("  \n"), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = DecodeRecords([]byte("{not json"), FormatJSON)
	require.Error(t, err)
}

func TestFormatForPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatYAML, FormatForPath("/tmp/x.yaml"))
	assert.Equal(t, FormatYAML, FormatForPath("x.YML"))
	assert.Equal(t, FormatJSON, FormatForPath("x.json"))
	assert.Equal(t, FormatJSON, FormatForPath("export"))
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"relationships.json", "relationships.yaml"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "nested", name)
			s := NewFileStore(path)
			ctx := context.Background()

			require.NoError(t, s.Save(ctx, sampleRecords()))
			_, err := os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err))

			records, err := s.ListRelationships(ctx, interfaces.RelationshipFilter{IncludeInactive: true})
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, sampleRecords()[0].DiscoveredAt, records[0].DiscoveredAt.UTC())
			assert.Equal(t, "us-east-1", records[0].Metadata["region"])
		})
	}
}

func TestFileStoreMissingAndCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	records, err := NewFileStore(filepath.Join(dir, "absent.json")).ListRelationships(context.Background(), interfaces.RelationshipFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{oops"), 0o600))
	_, err = NewFileStore(corrupt).ListRelationships(context.Background(), interfaces.RelationshipFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), corrupt)
}

// fakeS3 keeps objects in memory
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	t.Parallel()

	client := &fakeS3{}
	s := NewS3StoreWithClient(client, "bucket", "")
	ctx := context.Background()

	records, err := s.ListRelationships(ctx, interfaces.RelationshipFilter{})
	require.NoError(t, err, "missing object is an empty export")
	assert.Empty(t, records)

	require.NoError(t, s.Save(ctx, sampleRecords()))
	assert.Contains(t, client.objects, config.DefaultS3Key)

	records, err = s.ListRelationships(ctx, interfaces.RelationshipFilter{ResourceTypes: []string{"vpc"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ID)

	client.getErr = errors.New("access denied")
	_, err = s.ListRelationships(ctx, interfaces.RelationshipFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3StoreYAMLKey(t *testing.T) {
	t.Parallel()

	client := &fakeS3{}
	s := NewS3StoreWithClient(client, "bucket", "exports/rels.yaml")
	require.NoError(t, s.Save(context.Background(), sampleRecords()))
	assert.True(t, strings.HasPrefix(string(client.objects["exports/rels.yaml"]), "relationships:"))
}

// fakeDynamoDB serves scans in fixed-size pages
type fakeDynamoDB struct {
	mu       sync.Mutex
	items    []map[string]dbtypes.AttributeValue
	pageSize int
	scans    int
}

func (f *fakeDynamoDB) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++

	start := 0
	if params.ExclusiveStartKey != nil {
		start = atoiAttr(params.ExclusiveStartKey["offset"])
	}
	end := start + f.pageSize
	if end > len(f.items) {
		end = len(f.items)
	}
	out := &dynamodb.ScanOutput{Items: f.items[start:end]}
	if end < len(f.items) {
		out.LastEvaluatedKey = map[string]dbtypes.AttributeValue{
			"offset": &dbtypes.AttributeValueMemberN{Value: strconv.Itoa(end)},
		}
	}
	return out, nil
}

func (f *fakeDynamoDB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, nil
}

func (f *fakeDynamoDB) CreateTable(context.Context, *dynamodb.CreateTableInput, ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return &dynamodb.CreateTableOutput{}, nil
}

func TestDynamoDBStorePaginates(t *testing.T) {
	t.Parallel()

	client := &fakeDynamoDB{pageSize: 1}
	s := NewDynamoDBStoreWithClient(client, "relationships")
	ctx := context.Background()

	require.NoError(t, s.EnsureTable(ctx))
	require.NoError(t, s.Save(ctx, sampleRecords()))
	client.items = append(client.items, map[string]dbtypes.AttributeValue{
		attrID:       &dbtypes.AttributeValueMemberS{Value: "bad"},
		attrStrength: &dbtypes.AttributeValueMemberN{Value: "strong"},
	})

	records, err := s.ListRelationships(ctx, interfaces.RelationshipFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, 3, client.scans)
	require.Len(t, records, 2, "undecodable item is skipped")

	want := sampleRecords()
	assert.Equal(t, want[0], records[0])
	assert.Equal(t, want[1].Source, records[1].Source)
	assert.InDelta(t, 0.75, records[1].Confidence, 1e-9)
	assert.Nil(t, records[1].Metadata)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cfg := config.NewAnalysisConfig()
	cfg.Source.Type = config.SourceTypeMemory
	s, err := New(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	cfg.Source.Type = config.SourceTypeFile
	cfg.Source.File.Path = filepath.Join(t.TempDir(), "r.json")
	s, err = New(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	cfg.Source.Type = config.SourceTypeS3
	_, err = New(ctx, cfg)
	require.Error(t, err, "bucket is required")

	cfg.Source.Type = config.SourceTypeDynamoDB
	_, err = New(ctx, cfg)
	require.Error(t, err, "table is required")

	cfg.Source.Type = "ftp"
	_, err = New(ctx, cfg)
	require.Error(t, err)
}

func atoiAttr(v dbtypes.AttributeValue) int {
	n, ok := v.(*dbtypes.AttributeValueMemberN)
	if !ok {
		return 0
	}
	out, _ := strconv.Atoi(n.Value)
	return out
}
