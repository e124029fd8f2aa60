package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// LoadAWSConfig loads the default AWS config. AWS_ENDPOINT points every
// client at one URL (LocalStack in development). AWS_SQS_ENDPOINT and
// AWS_SNS_ENDPOINT override it for the SQS and SNS clients only.
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if os.Getenv("AWS_REGION") == "" && os.Getenv("AWS_DEFAULT_REGION") == "" {
		opts = append(opts, config.WithRegion("eu-west-2"))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	if endpoint := endpointOverride(); endpoint != "" {
		cfg.BaseEndpoint = sdkaws.String(endpoint)
	}
	return cfg, nil
}

func endpointOverride() string {
	return os.Getenv("AWS_ENDPOINT")
}

func sqsEndpoint(o *sqs.Options) {
	if v := os.Getenv("AWS_SQS_ENDPOINT"); v != "" {
		o.BaseEndpoint = sdkaws.String(v)
	}
}

func snsEndpoint(o *sns.Options) {
	if v := os.Getenv("AWS_SNS_ENDPOINT"); v != "" {
		o.BaseEndpoint = sdkaws.String(v)
	}
}
