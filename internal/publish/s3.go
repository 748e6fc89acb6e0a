package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the part of *s3.Client the S3 store uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store stores reports in an S3 bucket.
type S3Store struct {
	client ObjectPutter
	bucket string
}

// NewS3Store creates a store writing to bucket.
//
// Example usage:
//
//	store := publish.NewS3Store(publish.NewS3Client("eu-west-1"), "ci-reports")
//	location, err := publish.New(store, "reports/").Publish(ctx, report)
func NewS3Store(client ObjectPutter, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// Put uploads body under key.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, meta map[string]string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(ContentType),
		Metadata:    meta,
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

// NewS3Client creates an S3 client for region using the standard AWS_*
// credential environment variables.
func NewS3Client(region string) *s3.Client {
	cfg := aws.Config{
		Region:      region,
		Credentials: aws.NewCredentialsCache(envCredentials{}),
	}
	return s3.NewFromConfig(cfg)
}

type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
}
