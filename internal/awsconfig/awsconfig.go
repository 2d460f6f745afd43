/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package awsconfig resolves the aws.Config shared by the DynamoDB and S3 gateways.
package awsconfig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Settings holds the connection inputs for an AWS service client.
// Credentials are optional; when empty the default provider chain is used.
type Settings struct {
	Region          string
	Endpoint        string // Optional endpoint override, e.g. LocalStack
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Load builds an aws.Config from s.
func Load(ctx context.Context, s Settings) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error
	if s.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(s.Region))
	}
	if s.AccessKeyID != "" || s.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, s.SessionToken),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return cfg, nil
}
