package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// newDataset builds a dataset with the journal's layout: every backend and
// every reader must agree on the partition keys and the JSONL codec.
func newDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout("source", "day", "run_id", "event_type"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// NewFSDataset opens a journal dataset rooted in a local directory.
func NewFSDataset(dataset, root string) (lode.Dataset, error) {
	return newDataset(dataset, lode.NewFSFactory(root))
}

// S3Config configures the S3 journal backend.
type S3Config struct {
	// Bucket is required.
	Bucket string
	// Prefix is the key prefix inside the bucket.
	Prefix string
	// Region overrides the default credential chain's region.
	Region string
	// Endpoint points at an S3-compatible provider; empty means AWS.
	Endpoint string
	// UsePathStyle addresses the bucket in the path, which most
	// S3-compatible providers require.
	UsePathStyle bool
}

// Validate checks the required S3 settings.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("s3 journal requires a bucket")
	}
	return nil
}

// ParseS3Path splits "bucket/prefix" (or a bare "bucket").
func ParseS3Path(path string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(path, "/")
	return bucket, prefix
}

// NewS3Dataset opens a journal dataset on S3, using the AWS SDK's default
// credential chain.
func NewS3Dataset(ctx context.Context, dataset string, s3cfg S3Config) (lode.Dataset, error) {
	if err := s3cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if s3cfg.Region != "" {
		opts = append(opts, config.WithRegion(s3cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s3cfg.Endpoint != "" {
		endpoint := s3cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if s3cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(awsConfig, s3Opts...)

	factory := func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{
			Bucket: s3cfg.Bucket,
			Prefix: s3cfg.Prefix,
		})
	}
	return newDataset(dataset, factory)
}
