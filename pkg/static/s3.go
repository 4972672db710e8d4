package static

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectGetter is the part of *s3.Client an S3Source uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads documents from an S3 bucket.
type S3Source struct {
	client ObjectGetter
	bucket string
	prefix string
}

// NewS3Source returns a source reading bucket objects under prefix, e.g.
// "site/" maps "/index" to "site/index.html".
func NewS3Source(client ObjectGetter, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: prefix}
}

// S3Config configures an S3 client built by NewS3Client.
type S3Config struct {
	Region string

	// Endpoint overrides the service endpoint, e.g. for MinIO.
	Endpoint string

	// PathStyle addresses the bucket in the path instead of the host.
	PathStyle bool
}

// NewS3Client builds a client whose credentials come from the standard
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN variables.
func NewS3Client(cfg S3Config) *s3.Client {
	return s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  aws.CredentialsProviderFunc(envCredentials),
		UsePathStyle: cfg.PathStyle,
	}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
}

func envCredentials(ctx context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	if !creds.HasKeys() {
		return aws.Credentials{}, errors.New("static: AWS credentials not set in environment")
	}
	return creds, nil
}

// Document implements event.DocumentFetcher.
func (s *S3Source) Document(ctx context.Context, urlPath string) ([]byte, error) {
	names, err := candidates(urlPath)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.prefix + name),
		})
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("static: get s3://%s/%s%s: %w", s.bucket, s.prefix, name, err)
		}
		b, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("static: read s3://%s/%s%s: %w", s.bucket, s.prefix, name, err)
		}
		return b, nil
	}
	return nil, ErrNotFound
}
