//go:build !integration
// +build !integration

package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/netcmdb/netcmdb/internal/dependency"
	"github.com/netcmdb/netcmdb/internal/interfaces"
)

type mockEC2 struct {
	mock.Mock
}

func (m *mockEC2) DescribeSubnets(ctx context.Context, in *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	args := m.Called(ctx, in)
	if out, ok := args.Get(0).(*ec2.DescribeSubnetsOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEC2) DescribeVpcEndpoints(ctx context.Context, in *ec2.DescribeVpcEndpointsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcEndpointsOutput, error) {
	args := m.Called(ctx, in)
	if out, ok := args.Get(0).(*ec2.DescribeVpcEndpointsOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEC2) DescribeTransitGatewayVpcAttachments(ctx context.Context, in *ec2.DescribeTransitGatewayVpcAttachmentsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeTransitGatewayVpcAttachmentsOutput, error) {
	args := m.Called(ctx, in)
	if out, ok := args.Get(0).(*ec2.DescribeTransitGatewayVpcAttachmentsOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func topologyClient() *mockEC2 {
	client := &mockEC2{}

	client.On("DescribeSubnets", mock.Anything, mock.MatchedBy(func(in *ec2.DescribeSubnetsInput) bool {
		return in.NextToken == nil
	})).Return(&ec2.DescribeSubnetsOutput{
		Subnets: []types.Subnet{
			{SubnetId: aws.String("subnet-a"), VpcId: aws.String("vpc-1"), State: types.SubnetStateAvailable,
				CidrBlock: aws.String("10.0.1.0/24"), AvailabilityZone: aws.String("us-east-1a")},
		},
		NextToken: aws.String("page2"),
	}, nil).Once()
	client.On("DescribeSubnets", mock.Anything, mock.MatchedBy(func(in *ec2.DescribeSubnetsInput) bool {
		return aws.ToString(in.NextToken) == "page2"
	})).Return(&ec2.DescribeSubnetsOutput{
		Subnets: []types.Subnet{
			{SubnetId: aws.String("subnet-b"), VpcId: aws.String("vpc-1"), State: types.SubnetStatePending},
			{SubnetId: aws.String("subnet-orphan")},
		},
	}, nil).Once()

	client.On("DescribeVpcEndpoints", mock.Anything, mock.Anything).Return(&ec2.DescribeVpcEndpointsOutput{
		VpcEndpoints: []types.VpcEndpoint{
			{VpcEndpointId: aws.String("vpce-1"), VpcId: aws.String("vpc-1"), State: types.StateAvailable,
				ServiceName: aws.String("com.amazonaws.us-east-1.s3"), VpcEndpointType: types.VpcEndpointTypeGateway},
		},
	}, nil).Once()

	client.On("DescribeTransitGatewayVpcAttachments", mock.Anything, mock.Anything).Return(&ec2.DescribeTransitGatewayVpcAttachmentsOutput{
		TransitGatewayVpcAttachments: []types.TransitGatewayVpcAttachment{
			{TransitGatewayAttachmentId: aws.String("tgw-attach-1"), TransitGatewayId: aws.String("tgw-1"),
				VpcId: aws.String("vpc-1"), State: types.TransitGatewayAttachmentStateAvailable,
				SubnetIds: []string{"subnet-a", "subnet-b"}},
		},
	}, nil).Once()

	return client
}

func TestEC2Discoverer_Discover(t *testing.T) {
	t.Parallel()

	client := topologyClient()
	d := NewEC2DiscovererWithClient(client, "us-east-1")
	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	records, err := d.Discover(context.Background())
	require.NoError(t, err)
	client.AssertExpectations(t)
	require.Len(t, records, 4)

	subnet := records[0]
	assert.Equal(t, "contained_in:subnet-a:vpc-1", subnet.ID)
	assert.Equal(t, "aws:subnet:subnet-a", subnet.Source.Key())
	assert.Equal(t, "aws:vpc:vpc-1", subnet.Target.Key())
	assert.Equal(t, 9, subnet.Strength)
	assert.True(t, subnet.IsCritical)
	assert.Equal(t, interfaces.RelationshipStatusActive, subnet.Status)
	assert.Equal(t, fixed, subnet.DiscoveredAt)
	assert.Equal(t, map[string]string{
		"region":            "us-east-1",
		"cidr_block":        "10.0.1.0/24",
		"availability_zone": "us-east-1a",
	}, subnet.Metadata)

	assert.Equal(t, interfaces.RelationshipStatusInactive, records[1].Status, "pending subnet")

	endpoint := records[2]
	assert.Equal(t, RelAttachedTo, endpoint.RelationshipType)
	assert.Equal(t, interfaces.RelationshipStatusActive, endpoint.Status, "EC2 capitalises endpoint states")
	assert.InDelta(t, 0.95, endpoint.Confidence, 1e-9)
	assert.False(t, endpoint.IsCritical)

	tgw := records[3]
	assert.Equal(t, "aws:vpc:vpc-1", tgw.Source.Key())
	assert.Equal(t, "aws:transit_gateway:tgw-1", tgw.Target.Key())
	assert.Equal(t, "subnet-a,subnet-b", tgw.Metadata["subnet_ids"])
}

func TestEC2Discoverer_FeedsGraphBuilder(t *testing.T) {
	t.Parallel()

	d := NewEC2DiscovererWithClient(topologyClient(), "us-east-1")
	records, err := d.ListRelationships(context.Background(), interfaces.RelationshipFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 3, "inactive subnet is filtered")

	g, err := dependency.NewBuilder().Build(context.Background(), records, dependency.BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, g.NodeCount())

	tgw, ok := g.Node("aws:transit_gateway:tgw-1")
	require.True(t, ok)
	assert.Equal(t, 2, tgw.Level)
	vpc, _ := g.Node("aws:vpc:vpc-1")
	assert.Equal(t, 1, vpc.Level)
	subnet, _ := g.Node("aws:subnet:subnet-a")
	assert.Equal(t, 0, subnet.Level)
}

func TestEC2Discoverer_Error(t *testing.T) {
	t.Parallel()

	client := &mockEC2{}
	client.On("DescribeSubnets", mock.Anything, mock.Anything).Return(nil, errors.New("UnauthorizedOperation"))

	d := NewEC2DiscovererWithClient(client, "eu-west-1")
	_, err := d.ListRelationships(context.Background(), interfaces.RelationshipFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to describe subnets")
	client.AssertNotCalled(t, "DescribeVpcEndpoints", mock.Anything, mock.Anything)
}

func TestNewEC2DiscovererRequiresRegion(t *testing.T) {
	t.Parallel()

	_, err := NewEC2Discoverer(context.Background(), EC2Config{})
	require.Error(t, err)
}
