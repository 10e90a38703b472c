package cas

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"dca-automation/internal/config"
	"dca-automation/internal/models"
)

// S3Store is an S3-backed content-addressed store: objects are keyed by the
// sha256 digest of their payload, so identical content lands on one key.
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Store builds the store from config, honoring a custom endpoint for
// S3-compatible services like MinIO.
func NewS3Store(ctx context.Context, cfg config.Config) (*S3Store, error) {
	if cfg.CASS3Bucket == "" {
		return nil, fmt.Errorf("CAS_S3_BUCKET is required for the s3 backend")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.CASS3Region),
	}
	if cfg.CASS3Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:               cfg.CASS3Endpoint,
					HostnameImmutable: cfg.CASS3PathStyle,
					SigningRegion:     cfg.CASS3Region,
					Source:            aws.EndpointSourceCustom,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.CASS3PathStyle
	})

	return &S3Store{
		client:    client,
		bucket:    cfg.CASS3Bucket,
		publicURL: strings.TrimRight(cfg.CASS3PublicURL, "/"),
	}, nil
}

// Put writes the payload under its digest key. Uploading the same content
// twice overwrites the object in place, which is a no-op by construction.
func (s *S3Store) Put(ctx context.Context, name string, payload []byte) (models.ContentRef, error) {
	sum := sha256.Sum256(payload)
	key := hex.EncodeToString(sum[:])

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentTypeFor(name)),
	})
	if err != nil {
		return models.ContentRef{}, fmt.Errorf("put object: %w", err)
	}

	url := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	if s.publicURL != "" {
		url = fmt.Sprintf("%s/%s", s.publicURL, key)
	}
	return models.ContentRef{CID: key, URL: url}, nil
}
