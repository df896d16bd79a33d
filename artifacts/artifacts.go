// Package artifacts uploads completed run records to S3-compatible object
// storage. Each run becomes one JSON object, keyed by its run ID, so runs can
// be retained long after the history store has pruned them.
package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/samber/lo"

	"github.com/nomis52/goharness/config"
	"github.com/nomis52/goharness/server/runner"
)

// runDocument is the JSON document uploaded per run. It matches the shape the
// history store persists, so downstream consumers can treat both the same way.
type runDocument struct {
	runner.RunSummary
	StepExecutions []runner.StepExecution `json:"step_executions"`
}

// S3Uploader uploads run records to an S3 bucket.
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

var _ runner.ArtifactUploader = (*S3Uploader)(nil)

// NewS3Uploader creates an uploader for the configured bucket. Credentials
// come from the default AWS chain (environment, shared config, instance role).
func NewS3Uploader(ctx context.Context, cfg config.ArtifactsConfig, logger *slog.Logger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("artifact bucket is required")
	}

	var loadOpts []func(*awsCfg.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsCfg.WithRegion(cfg.Region))
	}
	awsConfig, err := awsCfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(options *s3.Options) {
		if cfg.Endpoint != "" {
			// S3-compatible stores (minio, ceph) need the endpoint pinned
			// and path-style addressing.
			options.BaseEndpoint = aws.String(cfg.Endpoint)
			options.UsePathStyle = true
		}
	})

	return &S3Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// CheckBucket verifies the configured bucket exists and is reachable. Called
// at startup so a misconfigured bucket surfaces before the first run.
func (u *S3Uploader) CheckBucket(ctx context.Context) error {
	out, err := u.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return fmt.Errorf("failed to list buckets: %w", classifyError(err))
	}

	exists := lo.ContainsBy(out.Buckets, func(b s3types.Bucket) bool {
		return b.Name != nil && *b.Name == u.bucket
	})
	if !exists {
		return fmt.Errorf("artifact bucket %s not found", u.bucket)
	}
	return nil
}

// UploadRun implements runner.ArtifactUploader.
func (u *S3Uploader) UploadRun(ctx context.Context, summary runner.RunSummary, steps []runner.StepExecution) error {
	doc := runDocument{
		RunSummary:     summary,
		StepExecutions: steps,
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	key := u.objectKey(summary.ID)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload run %s to s3://%s/%s: %w",
			summary.ID, u.bucket, key, classifyError(err))
	}

	u.logger.Info("uploaded run artifact",
		"id", summary.ID, "bucket", u.bucket, "key", key, "bytes", len(body))

	return nil
}

// objectKey builds the object key for a run ID.
func (u *S3Uploader) objectKey(id string) string {
	return path.Join(u.prefix, id+".json")
}

// classifyError surfaces the S3 API error code, which the SDK otherwise
// buries under several layers of operation and transport wrapping.
func classifyError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err
}
