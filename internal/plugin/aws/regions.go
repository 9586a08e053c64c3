package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ErrNoRegions is returned when region listing succeeds but yields nothing.
var ErrNoRegions = errors.New("no regions returned")

// ListRegions returns the regions enabled for the account, in the order
// DescribeRegions reports them. It makes exactly one call.
func ListRegions(ctx context.Context, client EC2API) ([]string, error) {
	output, err := client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("describe regions: %w", err)
	}

	regions := make([]string, 0, len(output.Regions))
	for _, r := range output.Regions {
		if name := aws.ToString(r.RegionName); name != "" {
			regions = append(regions, name)
		}
	}
	if len(regions) == 0 {
		return nil, ErrNoRegions
	}
	return regions, nil
}

func getAccountID(ctx context.Context, client STSAPI) (string, error) {
	output, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", err
	}
	if output.Account == nil {
		return "unknown", nil
	}
	return aws.ToString(output.Account), nil
}
