package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	ectypes "github.com/aws/aws-sdk-go-v2/service/elasticache/types"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yairfalse/costscan/pkg/resource"
)

// scanFunc lists one service in one region and normalizes the first page.
// region is the label written to every record.
type scanFunc func(ctx context.Context, c *Clients, region string) ([]resource.Record, error)

var scanners = map[resource.Service]scanFunc{
	resource.ServiceEC2:         scanEC2,
	resource.ServiceEBS:         scanEBSVolumes,
	resource.ServiceElasticIP:   scanElasticIPs,
	resource.ServiceELB:         scanELB,
	resource.ServiceRDS:         scanRDS,
	resource.ServiceElastiCache: scanElastiCache,
	resource.ServiceDynamoDB:    scanDynamoDB,
	resource.ServiceNATGateway:  scanNATGateways,
	resource.ServiceS3:          scanS3,
	resource.ServiceCloudFront:  scanCloudFront,
	resource.ServiceEKS:         scanEKS,
}

// scanEC2 scans EC2 instances.
func scanEC2(ctx context.Context, c *Clients, region string) ([]resource.Record, error) {
	output, err := c.EC2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{})
	if err != nil {
		return nil, fmt.Errorf("describe instances: %w", err)
	}

	var records []resource.Record
	for _, reservation := range output.Reservations {
		for _, instance := range reservation.Instances {
			records = append(records, convertEC2Instance(instance, region))
		}
	}
	return records, nil
}

func convertEC2Instance(instance ec2types.Instance, region string) resource.Record {
	var state, az string
	if instance.State != nil {
		state = string(instance.State.Name)
	}
	if instance.Placement != nil {
		az = aws.ToString(instance.Placement.AvailabilityZone)
	}
	return resource.Record{
		Service:    resource.ServiceEC2,
		ResourceID: aws.ToString(instance.InstanceId),
		Region:     region,
		Details:    fmt.Sprintf("Type=%s, State=%s, AZ=%s", instance.InstanceType, state, az),
	}
}

// scanEBSVolumes scans EBS volumes.
func scanEBSVolumes(ctx context.Context, c *Clients, region string) ([]resource.Record, error) {
	output, err := c.EC2.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{})
	if err != nil {
		return nil, fmt.Errorf("describe volumes: %w", err)
	}

	records := make([]resource.Record, 0, len(output.Volumes))
	for _, vol := range output.Volumes {
		records = append(records, convertEBSVolume(vol, region))
	}
	return records, nil
}

func convertEBSVolume(vol ec2types.Volume, region string) resource.Record {
	return resource.Record{
		Service:    resource.ServiceEBS,
		ResourceID: aws.ToString(vol.VolumeId),
		Region:     region,
		Details:    fmt.Sprintf("Size=%dGiB, State=%s", aws.ToInt32(vol.Size), vol.State),
	}
}

// scanElasticIPs scans Elastic IP allocations.
func scanElasticIPs(ctx context.Context, c *Clients, region string) ([]resource.Record, error) {
	output, err := c.EC2.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return nil, fmt.Errorf("describe addresses: %w", err)
	}

	records := make([]resource.Record, 0, len(output.Addresses))
	for _, addr := range output.Addresses {
		records = append(records, convertElasticIP(addr, region))
	}
	return records, nil
}

// convertElasticIP keys the record by allocation id. EC2-Classic addresses
// have none, so the public address stands in.
func convertElasticIP(addr ec2types.Address, region string) resource.Record {
	id := aws.ToString(addr.AllocationId)
	if id == "" {
		id = aws.ToString(addr.PublicIp)
	}
	return resource.Record{
		Service:    resource.ServiceElasticIP,
		ResourceID: id,
		Region:     region,
		Details:    fmt.Sprintf("IP=%s, Instance=%s", orNone(addr.PublicIp), orNone(addr.InstanceId)),
	}
}

// scanELB scans Elastic Load Balancers (v2: application, network, gateway).
func scanELB(ctx context.Context, c *Clients, region string) ([]resource.Record, error) {
	output, err := c.ELB.DescribeLoadBalancers(ctx, &elasticloadbalancingv2.DescribeLoadBalancersInput{})
	if err != nil {
		return nil, fmt.Errorf("describe load balancers: %w", err)
	}

	records := make([]resource.Record, 0, len(output.LoadBalancers))
	for _, lb := range output.LoadBalancers {
		records = append(records, convertELB(lb, region))
	}
	return records, nil
}

// convertELB uses the ARN as id: names are only unique per balancer type.
func convertELB(lb elbtypes.LoadBalancer, region string) resource.Record {
	var state string
	if lb.State != nil {
		state = string(lb.State.Code)
	}
	return resource.Record{
		Service:    resource.ServiceELB,
		ResourceID: aws.ToString(lb.LoadBalancerArn),
		Region:     region,
		Details:    fmt.Sprintf("Name=%s, Type=%s, State=%s", aws.ToString(lb.LoadBalancerName), lb.Type, state),
	}
}

// scanRDS scans RDS instances.
func scanRDS(ctx context.Context, c *Clients, region string) ([]resource.Record, error) {
	output, err := c.RDS.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{})
	if err != nil {
		return nil, fmt.Errorf("describe db instances: %w", err)
	}

	records := make([]resource.Record, 0, len(output.DBInstances))
	for _, instance := range output.DBInstances {
		records = append(records, convertRDSInstance(instance, region))
	}
	return records, nil
}

func convertRDSInstance(instance rdstypes.DBInstance, region string) resource.Record {
	return resource.Record{
		Service:    resource.ServiceRDS,
		ResourceID: aws.ToString(instance.DBInstanceIdentifier),
		Region:     region,
		Details:    fmt.Sprintf("Engine=%s, AZ=%s", aws.ToString(instance.Engine), aws.ToString(instance.AvailabilityZone)),
	}
}

// scanElastiCache scans ElastiCache clusters. Node info is requested but
// nodes are not reported individually.
func scanElastiCache(ctx context.Context, c *Clients, region string) ([]resource.Record, error) {
	output, err := c.ElastiCache.DescribeCacheClusters(ctx, &elasticache.DescribeCacheClustersInput{
		ShowCacheNodeInfo: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("describe cache clusters: %w", err)
	}

	records := make([]resource.Record, 0, len(output.CacheClusters))
	for _, cluster := range output.CacheClusters {
		records = append(records, convertElastiCacheCluster(cluster, region))
	}
	return records, nil
}

func convertElastiCacheCluster(cluster ectypes.CacheCluster, region string) resource.Record {
	return resource.Record{
		Service:    resource.ServiceElastiCache,
		ResourceID: aws.ToString(cluster.CacheClusterId),
		Region:     region,
		Details:    fmt.Sprintf("Engine=%s, Status=%s", aws.ToString(cluster.Engine), aws.ToString(cluster.CacheClusterStatus)),
	}
}

// scanDynamoDB scans DynamoDB table names. No per-table describe call.
func scanDynamoDB(ctx context.Context, c *Clients, region string) ([]resource.Record, error) {
	output, err := c.DynamoDB.ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	records := make([]resource.Record, 0, len(output.TableNames))
	for _, name := range output.TableNames {
		records = append(records, resource.Record{
			Service:    resource.ServiceDynamoDB,
			ResourceID: name,
			Region:     region,
			Details:    "Table",
		})
	}
	return records, nil
}

// scanNATGateways scans NAT gateways.
func scanNATGateways(ctx context.Context, c *Clients, region string) ([]resource.Record, error) {
	output, err := c.EC2.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{})
	if err != nil {
		return nil, fmt.Errorf("describe nat gateways: %w", err)
	}

	records := make([]resource.Record, 0, len(output.NatGateways))
	for _, nat := range output.NatGateways {
		records = append(records, convertNATGateway(nat, region))
	}
	return records, nil
}

func convertNATGateway(nat ec2types.NatGateway, region string) resource.Record {
	return resource.Record{
		Service:    resource.ServiceNATGateway,
		ResourceID: aws.ToString(nat.NatGatewayId),
		Region:     region,
		Details:    fmt.Sprintf("State=%s, Subnet=%s", nat.State, aws.ToString(nat.SubnetId)),
	}
}

// scanS3 scans S3 buckets. The bucket namespace is global, so the region
// label is ignored.
func scanS3(ctx context.Context, c *Clients, _ string) ([]resource.Record, error) {
	output, err := c.S3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	records := make([]resource.Record, 0, len(output.Buckets))
	for _, bucket := range output.Buckets {
		records = append(records, resource.Record{
			Service:    resource.ServiceS3,
			ResourceID: aws.ToString(bucket.Name),
			Region:     resource.GlobalRegion,
			Details:    "S3 Bucket",
		})
	}
	return records, nil
}

// scanCloudFront scans CloudFront distributions.
func scanCloudFront(ctx context.Context, c *Clients, _ string) ([]resource.Record, error) {
	output, err := c.CloudFront.ListDistributions(ctx, &cloudfront.ListDistributionsInput{})
	if err != nil {
		return nil, fmt.Errorf("list distributions: %w", err)
	}
	if output.DistributionList == nil {
		return nil, nil
	}

	records := make([]resource.Record, 0, len(output.DistributionList.Items))
	for _, dist := range output.DistributionList.Items {
		records = append(records, convertCloudFrontDistribution(dist))
	}
	return records, nil
}

func convertCloudFrontDistribution(dist cftypes.DistributionSummary) resource.Record {
	return resource.Record{
		Service:    resource.ServiceCloudFront,
		ResourceID: aws.ToString(dist.Id),
		Region:     resource.GlobalRegion,
		Details:    fmt.Sprintf("Domain=%s", aws.ToString(dist.DomainName)),
	}
}

// scanEKS scans EKS cluster names.
func scanEKS(ctx context.Context, c *Clients, region string) ([]resource.Record, error) {
	output, err := c.EKS.ListClusters(ctx, &eks.ListClustersInput{})
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}

	records := make([]resource.Record, 0, len(output.Clusters))
	for _, name := range output.Clusters {
		records = append(records, resource.Record{
			Service:    resource.ServiceEKS,
			ResourceID: name,
			Region:     region,
			Details:    "EKS Cluster",
		})
	}
	return records, nil
}

// orNone renders a missing string the way the console has always shown it.
func orNone(s *string) string {
	if s == nil || *s == "" {
		return "None"
	}
	return *s
}
