// Package discovery derives relationship records from live cloud topology
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/netcmdb/netcmdb/internal/awsclient"
	"github.com/netcmdb/netcmdb/internal/interfaces"
	"github.com/netcmdb/netcmdb/pkg/logging"
)

// Resource types produced by EC2 discovery
const (
	ProviderAWS           = "aws"
	TypeVPC               = "vpc"
	TypeSubnet            = "subnet"
	TypeVPCEndpoint       = "vpc_endpoint"
	TypeTransitGateway    = "transit_gateway"
	RelContainedIn        = "contained_in"
	RelAttachedTo         = "attached_to"
	RelRoutesThrough      = "routes_through"
	availableStateLiteral = "available"
)

// EC2API is the subset of the EC2 client discovery uses
type EC2API interface {
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
	DescribeVpcEndpoints(ctx context.Context, params *ec2.DescribeVpcEndpointsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcEndpointsOutput, error)
	DescribeTransitGatewayVpcAttachments(ctx context.Context, params *ec2.DescribeTransitGatewayVpcAttachmentsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeTransitGatewayVpcAttachmentsOutput, error)
}

// EC2Config holds the discovery region and optional endpoint override
type EC2Config struct {
	Region   string `json:"region"`
	Endpoint string `json:"endpoint,omitempty"`
}

// EC2Discoverer turns VPC topology into relationship records
type EC2Discoverer struct {
	client EC2API
	region string
	logger *logging.Logger
	now    func() time.Time
}

// NewEC2Discoverer creates a discoverer from the default AWS credential chain
func NewEC2Discoverer(ctx context.Context, cfg EC2Config) (*EC2Discoverer, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	awsCfg, err := awsclient.LoadConfig(ctx, cfg.Region, cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	var client *ec2.Client
	if cfg.Endpoint != "" {
		client = ec2.NewFromConfig(awsCfg, func(o *ec2.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	} else {
		client = ec2.NewFromConfig(awsCfg)
	}

	return NewEC2DiscovererWithClient(client, cfg.Region), nil
}

// NewEC2DiscovererWithClient creates a discoverer over an existing client
func NewEC2DiscovererWithClient(client EC2API, region string) *EC2Discoverer {
	return &EC2Discoverer{
		client: client,
		region: region,
		logger: logging.Discovery,
		now:    time.Now,
	}
}

// ListRelationships implements interfaces.RelationshipStore by discovering
// the current topology on every call
func (d *EC2Discoverer) ListRelationships(ctx context.Context, filter interfaces.RelationshipFilter) ([]interfaces.RelationshipRecord, error) {
	records, err := d.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(records), nil
}

// Discover returns subnet, VPC endpoint and transit gateway relationships.
// Resources that are not available produce inactive records.
func (d *EC2Discoverer) Discover(ctx context.Context) ([]interfaces.RelationshipRecord, error) {
	d.logger.Operation(ctx, "discover_ec2", map[string]interface{}{"region": d.region})

	discoveredAt := d.now().UTC()
	var records []interfaces.RelationshipRecord

	subnets, err := d.subnetRecords(ctx, discoveredAt)
	if err != nil {
		d.logger.Failure(ctx, "discover_ec2", err)
		return nil, err
	}
	records = append(records, subnets...)

	endpoints, err := d.endpointRecords(ctx, discoveredAt)
	if err != nil {
		d.logger.Failure(ctx, "discover_ec2", err)
		return nil, err
	}
	records = append(records, endpoints...)

	attachments, err := d.attachmentRecords(ctx, discoveredAt)
	if err != nil {
		d.logger.Failure(ctx, "discover_ec2", err)
		return nil, err
	}
	records = append(records, attachments...)

	d.logger.Success(ctx, "discover_ec2", fmt.Sprintf("%d subnets, %d endpoints, %d attachments",
		len(subnets), len(endpoints), len(attachments)))
	return records, nil
}

func (d *EC2Discoverer) subnetRecords(ctx context.Context, at time.Time) ([]interfaces.RelationshipRecord, error) {
	var records []interfaces.RelationshipRecord
	paginator := ec2.NewDescribeSubnetsPaginator(d.client, &ec2.DescribeSubnetsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe subnets: %w", err)
		}
		for _, subnet := range page.Subnets {
			subnetID, vpcID := aws.ToString(subnet.SubnetId), aws.ToString(subnet.VpcId)
			if subnetID == "" || vpcID == "" {
				continue
			}
			records = append(records, interfaces.RelationshipRecord{
				ID:               RelContainedIn + ":" + subnetID + ":" + vpcID,
				Source:           d.ref(TypeSubnet, subnetID),
				Target:           d.ref(TypeVPC, vpcID),
				RelationshipType: RelContainedIn,
				Strength:         9,
				Confidence:       1.0,
				IsCritical:       true,
				Status:           statusFor(string(subnet.State)),
				DiscoveredAt:     at,
				Metadata: d.metadata(map[string]string{
					"cidr_block":        aws.ToString(subnet.CidrBlock),
					"availability_zone": aws.ToString(subnet.AvailabilityZone),
				}),
			})
		}
	}
	return records, nil
}

func (d *EC2Discoverer) endpointRecords(ctx context.Context, at time.Time) ([]interfaces.RelationshipRecord, error) {
	var records []interfaces.RelationshipRecord
	paginator := ec2.NewDescribeVpcEndpointsPaginator(d.client, &ec2.DescribeVpcEndpointsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe VPC endpoints: %w", err)
		}
		for _, endpoint := range page.VpcEndpoints {
			endpointID, vpcID := aws.ToString(endpoint.VpcEndpointId), aws.ToString(endpoint.VpcId)
			if endpointID == "" || vpcID == "" {
				continue
			}
			records = append(records, interfaces.RelationshipRecord{
				ID:               RelAttachedTo + ":" + endpointID + ":" + vpcID,
				Source:           d.ref(TypeVPCEndpoint, endpointID),
				Target:           d.ref(TypeVPC, vpcID),
				RelationshipType: RelAttachedTo,
				Strength:         6,
				Confidence:       0.95,
				Status:           statusFor(string(endpoint.State)),
				DiscoveredAt:     at,
				Metadata: d.metadata(map[string]string{
					"service_name":  aws.ToString(endpoint.ServiceName),
					"endpoint_type": string(endpoint.VpcEndpointType),
				}),
			})
		}
	}
	return records, nil
}

func (d *EC2Discoverer) attachmentRecords(ctx context.Context, at time.Time) ([]interfaces.RelationshipRecord, error) {
	var records []interfaces.RelationshipRecord
	paginator := ec2.NewDescribeTransitGatewayVpcAttachmentsPaginator(d.client, &ec2.DescribeTransitGatewayVpcAttachmentsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe transit gateway attachments: %w", err)
		}
		for _, attachment := range page.TransitGatewayVpcAttachments {
			vpcID, tgwID := aws.ToString(attachment.VpcId), aws.ToString(attachment.TransitGatewayId)
			if vpcID == "" || tgwID == "" {
				continue
			}
			records = append(records, interfaces.RelationshipRecord{
				ID:               RelRoutesThrough + ":" + vpcID + ":" + tgwID,
				Source:           d.ref(TypeVPC, vpcID),
				Target:           d.ref(TypeTransitGateway, tgwID),
				RelationshipType: RelRoutesThrough,
				Strength:         8,
				Confidence:       0.9,
				IsCritical:       true,
				Status:           statusFor(string(attachment.State)),
				DiscoveredAt:     at,
				Metadata: d.metadata(map[string]string{
					"attachment_id": aws.ToString(attachment.TransitGatewayAttachmentId),
					"subnet_ids":    strings.Join(attachment.SubnetIds, ","),
				}),
			})
		}
	}
	return records, nil
}

func (d *EC2Discoverer) ref(resourceType, id string) interfaces.ResourceRef {
	return interfaces.ResourceRef{Provider: ProviderAWS, ResourceType: resourceType, ResourceID: id}
}

// metadata drops empty values and stamps the region
func (d *EC2Discoverer) metadata(values map[string]string) map[string]string {
	out := map[string]string{"region": d.region}
	for k, v := range values {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// statusFor maps an EC2 state to a relationship status. EC2 spells
// "available" in both cases depending on the resource.
func statusFor(state string) interfaces.RelationshipStatus {
	if strings.EqualFold(state, availableStateLiteral) {
		return interfaces.RelationshipStatusActive
	}
	return interfaces.RelationshipStatusInactive
}
