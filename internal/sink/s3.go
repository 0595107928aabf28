package sink

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"ddos-reassembler/internal/config"
	"ddos-reassembler/internal/logging"
	"ddos-reassembler/internal/reassembler"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads each summary as <prefix>/<key>.json.
type S3Sink struct {
	client putObjectAPI
	bucket string
	prefix string
}

func NewS3Sink(ctx context.Context, cfg config.S3Config) (*S3Sink, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logging.GetLogger().WithFields(logrus.Fields{
		"bucket": cfg.Bucket,
		"prefix": cfg.Prefix,
		"region": awsCfg.Region,
	}).Info("S3 sink configured")

	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3Sink) objectKey(key string) string {
	if s.prefix == "" {
		return key + ".json"
	}
	return path.Join(s.prefix, key+".json")
}

func (s *S3Sink) Write(ctx context.Context, summary *reassembler.Summary) error {
	if err := ensureKey(summary); err != nil {
		return err
	}
	data, err := Encode(summary)
	if err != nil {
		return err
	}

	objectKey := s.objectKey(summary.Key)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, objectKey, err)
	}
	return nil
}

func (s *S3Sink) Close() error { return nil }
