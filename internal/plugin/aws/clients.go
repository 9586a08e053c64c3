package aws

import (
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Clients bundles the service clients for one region
// (interfaces for testability).
type Clients struct {
	EC2         EC2API
	ELB         ELBAPI
	RDS         RDSAPI
	ElastiCache ElastiCacheAPI
	DynamoDB    DynamoDBAPI
	S3          S3API
	CloudFront  CloudFrontAPI
	EKS         EKSAPI
	STS         STSAPI
}

// ClientFactory hands out clients scoped to a region. The empty region
// means the home region, used for region listing and global services.
type ClientFactory interface {
	Clients(region string) *Clients
}

// sdkFactory builds real SDK clients from one loaded aws.Config.
type sdkFactory struct {
	cfg aws.Config

	mu    sync.Mutex
	cache map[string]*Clients
}

func newSDKFactory(cfg aws.Config) *sdkFactory {
	return &sdkFactory{cfg: cfg, cache: make(map[string]*Clients)}
}

// Clients returns the cached client set for region, creating it on first use.
func (f *sdkFactory) Clients(region string) *Clients {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.cache[region]; ok {
		return c
	}

	cfg := f.cfg.Copy()
	if region != "" {
		cfg.Region = region
	}

	c := &Clients{
		EC2:         ec2.NewFromConfig(cfg),
		ELB:         elasticloadbalancingv2.NewFromConfig(cfg),
		RDS:         rds.NewFromConfig(cfg),
		ElastiCache: elasticache.NewFromConfig(cfg),
		DynamoDB:    dynamodb.NewFromConfig(cfg),
		S3:          s3.NewFromConfig(cfg),
		CloudFront:  cloudfront.NewFromConfig(cfg),
		EKS:         eks.NewFromConfig(cfg),
		STS:         sts.NewFromConfig(cfg),
	}
	f.cache[region] = c
	return c
}
