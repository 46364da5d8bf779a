// Package awsx loads AWS SDK configuration for the service clients.
package awsx

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
)

// Load loads the AWS configuration, pointing every client at endpoint when
// one is given (e.g. http://localstack:4566 for local development).
func Load(ctx context.Context, region, endpoint string) (aws.Config, error) {
	if endpoint == "" {
		return awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, r string, _ ...any) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               endpoint,
			HostnameImmutable: true,
			PartitionID:       "aws",
		}, nil
	})

	return awscfg.LoadDefaultConfig(ctx,
		awscfg.WithRegion(region),
		awscfg.WithEndpointResolverWithOptions(resolver),
	)
}
