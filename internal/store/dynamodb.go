package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/netcmdb/netcmdb/internal/awsclient"
	"github.com/netcmdb/netcmdb/internal/interfaces"
	"github.com/netcmdb/netcmdb/pkg/logging"
)

// Relationship table attribute names
const (
	attrID               = "id"
	attrSourceProvider   = "source_provider"
	attrSourceType       = "source_type"
	attrSourceID         = "source_id"
	attrTargetProvider   = "target_provider"
	attrTargetType       = "target_type"
	attrTargetID         = "target_id"
	attrRelationshipType = "relationship_type"
	attrStrength         = "strength"
	attrConfidence       = "confidence"
	attrIsCritical       = "is_critical"
	attrStatus           = "status"
	attrDiscoveredAt     = "discovered_at"
	attrMetadata         = "metadata"
)

const tableWaitTimeout = 2 * time.Minute

// DynamoDBAPI is the subset of the DynamoDB client the store uses
type DynamoDBAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// DynamoDBStoreConfig holds the relationship table settings
type DynamoDBStoreConfig struct {
	Table    string `json:"table"`
	Region   string `json:"region"`
	Endpoint string `json:"endpoint,omitempty"`
}

// DynamoDBStore reads relationship records from a DynamoDB table with one
// item per relationship keyed by id
type DynamoDBStore struct {
	client DynamoDBAPI
	table  string
}

// NewDynamoDBStore creates a DynamoDB store from the default AWS credential chain
func NewDynamoDBStore(ctx context.Context, cfg DynamoDBStoreConfig) (*DynamoDBStore, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("DynamoDB table name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("DynamoDB region is required")
	}

	awsCfg, err := awsclient.LoadConfig(ctx, cfg.Region, cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	var client *dynamodb.Client
	if cfg.Endpoint != "" {
		client = dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	} else {
		client = dynamodb.NewFromConfig(awsCfg)
	}

	return NewDynamoDBStoreWithClient(client, cfg.Table), nil
}

// NewDynamoDBStoreWithClient creates a DynamoDB store over an existing client
func NewDynamoDBStoreWithClient(client DynamoDBAPI, table string) *DynamoDBStore {
	return &DynamoDBStore{client: client, table: table}
}

// EnsureTable creates the relationship table if it does not exist and waits
// for it to become active
func (s *DynamoDBStore) EnsureTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe table %s: %w", s.table, err)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrID), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, tableWaitTimeout); err != nil {
		return fmt.Errorf("table %s did not become active: %w", s.table, err)
	}
	return nil
}

// ListRelationships implements interfaces.RelationshipStore. Items that
// cannot be decoded are skipped with a warning.
func (s *DynamoDBStore) ListRelationships(ctx context.Context, filter interfaces.RelationshipFilter) ([]interfaces.RelationshipRecord, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	})

	records := []interfaces.RelationshipRecord{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			logging.StoreError("scan", s.table, err)
			return nil, fmt.Errorf("failed to scan relationship table %s: %w", s.table, err)
		}
		for _, item := range page.Items {
			record, err := unmarshalRecord(item)
			if err != nil {
				logging.Store.Warn("Skipping relationship item in %s: %v", s.table, err)
				continue
			}
			if filter.Matches(&record) {
				records = append(records, record)
			}
		}
	}

	logging.StoreOperation("list", s.table, len(records))
	return records, nil
}

// Save writes one item per record, replacing items with the same id
func (s *DynamoDBStore) Save(ctx context.Context, records []interfaces.RelationshipRecord) error {
	for i := range records {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.table),
			Item:      marshalRecord(&records[i]),
		})
		if err != nil {
			logging.StoreError("save", s.table, err)
			return fmt.Errorf("failed to put relationship %s: %w", records[i].ID, err)
		}
	}
	logging.StoreOperation("save", s.table, len(records))
	return nil
}

func marshalRecord(r *interfaces.RelationshipRecord) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		attrID:               &types.AttributeValueMemberS{Value: r.ID},
		attrSourceProvider:   &types.AttributeValueMemberS{Value: r.Source.Provider},
		attrSourceType:       &types.AttributeValueMemberS{Value: r.Source.ResourceType},
		attrSourceID:         &types.AttributeValueMemberS{Value: r.Source.ResourceID},
		attrTargetProvider:   &types.AttributeValueMemberS{Value: r.Target.Provider},
		attrTargetType:       &types.AttributeValueMemberS{Value: r.Target.ResourceType},
		attrTargetID:         &types.AttributeValueMemberS{Value: r.Target.ResourceID},
		attrRelationshipType: &types.AttributeValueMemberS{Value: r.RelationshipType},
		attrStrength:         &types.AttributeValueMemberN{Value: strconv.Itoa(r.Strength)},
		attrConfidence:       &types.AttributeValueMemberN{Value: strconv.FormatFloat(r.Confidence, 'f', -1, 64)},
		attrIsCritical:       &types.AttributeValueMemberBOOL{Value: r.IsCritical},
		attrStatus:           &types.AttributeValueMemberS{Value: string(r.Status)},
	}
	if !r.DiscoveredAt.IsZero() {
		item[attrDiscoveredAt] = &types.AttributeValueMemberS{Value: r.DiscoveredAt.UTC().Format(time.RFC3339)}
	}
	if len(r.Metadata) > 0 {
		m := make(map[string]types.AttributeValue, len(r.Metadata))
		for k, v := range r.Metadata {
			m[k] = &types.AttributeValueMemberS{Value: v}
		}
		item[attrMetadata] = &types.AttributeValueMemberM{Value: m}
	}
	return item
}

// unmarshalRecord decodes an item. Missing string attributes decode to empty
// values so the graph builder can report them; malformed numbers are errors.
func unmarshalRecord(item map[string]types.AttributeValue) (interfaces.RelationshipRecord, error) {
	r := interfaces.RelationshipRecord{
		ID: stringAttr(item, attrID),
		Source: interfaces.ResourceRef{
			Provider:     stringAttr(item, attrSourceProvider),
			ResourceType: stringAttr(item, attrSourceType),
			ResourceID:   stringAttr(item, attrSourceID),
		},
		Target: interfaces.ResourceRef{
			Provider:     stringAttr(item, attrTargetProvider),
			ResourceType: stringAttr(item, attrTargetType),
			ResourceID:   stringAttr(item, attrTargetID),
		},
		RelationshipType: stringAttr(item, attrRelationshipType),
		Status:           interfaces.RelationshipStatus(stringAttr(item, attrStatus)),
	}

	if v, ok := item[attrStrength].(*types.AttributeValueMemberN); ok {
		strength, err := strconv.Atoi(v.Value)
		if err != nil {
			return r, fmt.Errorf("item %q: invalid strength %q: %w", r.ID, v.Value, err)
		}
		r.Strength = strength
	}
	if v, ok := item[attrConfidence].(*types.AttributeValueMemberN); ok {
		confidence, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return r, fmt.Errorf("item %q: invalid confidence %q: %w", r.ID, v.Value, err)
		}
		r.Confidence = confidence
	}
	if v, ok := item[attrIsCritical].(*types.AttributeValueMemberBOOL); ok {
		r.IsCritical = v.Value
	}
	if s := stringAttr(item, attrDiscoveredAt); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			r.DiscoveredAt = t
		}
	}
	if v, ok := item[attrMetadata].(*types.AttributeValueMemberM); ok {
		r.Metadata = make(map[string]string, len(v.Value))
		for k, mv := range v.Value {
			if s, ok := mv.(*types.AttributeValueMemberS); ok {
				r.Metadata[k] = s.Value
			}
		}
	}
	return r, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
