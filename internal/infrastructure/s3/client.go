package s3infra

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmca-notices/internal/config"
	"github.com/dmca-notices/internal/domain"
	"github.com/dmca-notices/internal/infrastructure/awsconf"
)

// PutObjectAPI is the subset of the S3 client the store uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store wraps S3 operations for the application.
type Store struct {
	client PutObjectAPI
	bucket string
}

// NewClient creates an S3 client. An endpoint override (LocalStack) also
// switches to path-style addressing.
func NewClient(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := awsconf.Load(ctx, cfg, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if ep := awsconf.Endpoint(cfg); ep != nil {
			o.BaseEndpoint = ep
			o.UsePathStyle = true
		}
	}), nil
}

// NewStore creates a Store with the given S3 client and bucket name.
func NewStore(client PutObjectAPI, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Upload streams an object to S3 under key and returns its s3:// URL.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// ArchiveNotice stores the rendered notice text at notices/<owner>/<id>.txt.
func (s *Store) ArchiveNotice(ctx context.Context, n *domain.Notice) error {
	_, err := s.Upload(ctx, noticeKey(n), strings.NewReader(n.Content), "text/plain; charset=utf-8")
	return err
}

func noticeKey(n *domain.Notice) string {
	return fmt.Sprintf("notices/%s/%s.txt", n.UserID, n.NoticeID)
}
