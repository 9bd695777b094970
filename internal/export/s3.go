package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/pkg/logger"
)

// PutObjectAPI is the slice of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures CSV uploads. Static keys are optional; without them
// the default AWS credential chain is used.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
}

// S3Uploader stores CSV exports in a bucket.
type S3Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Uploader loads AWS config and builds an uploader.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 export: bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for s3 export: %w", err)
	}

	return NewS3UploaderWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

// NewS3UploaderWithClient wraps an existing client (useful for testing).
func NewS3UploaderWithClient(client PutObjectAPI, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Upload stores body under prefix/key and returns the s3:// URI.
func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("s3 export: empty key")
	}
	if u.prefix != "" {
		key = path.Join(u.prefix, key)
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("S3 PutObject %s/%s: %w", u.bucket, key, err)
	}

	uri := fmt.Sprintf("s3://%s/%s", u.bucket, key)
	logger.Info("export uploaded", "uri", uri, "bytes", len(body))
	return uri, nil
}

// UploadCSV renders offers as CSV and uploads them.
func (u *S3Uploader) UploadCSV(ctx context.Context, key string, offers []domain.ScoredOffer) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, offers); err != nil {
		return "", err
	}
	return u.Upload(ctx, key, buf.Bytes())
}

var unsafeKeyChars = regexp.MustCompile(`[^a-z0-9]+`)

// DefaultKey builds "<keyword>/<timestamp>.csv" for runs without an explicit key.
func DefaultKey(keyword string, at time.Time) string {
	slug := strings.Trim(unsafeKeyChars.ReplaceAllString(strings.ToLower(keyword), "-"), "-")
	if slug == "" {
		slug = "search"
	}
	return fmt.Sprintf("%s/%s.csv", slug, at.UTC().Format("20060102T150405Z"))
}
