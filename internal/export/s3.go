package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config locates the bucket export files are mirrored to.
type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // optional S3-compatible endpoint, e.g. https://fsn1.your-objectstorage.com
	KeyID    string
	Secret   string
}

// S3Uploader copies finished export files to an S3 bucket.
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Uploader creates an uploader using static credentials. A custom
// endpoint is addressed path-style, as S3-compatible stores require.
func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}
	if cfg.KeyID == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("S3 config is incomplete: key id and secret are required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := s3.Options{
		Region: region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.KeyID, cfg.Secret, "",
		),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}

	return &S3Uploader{
		client: s3.New(opts),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Key returns the object key for a local file.
func (u *S3Uploader) Key(localPath string) string {
	name := filepath.Base(localPath)
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// Upload puts the file at localPath into the bucket and returns its s3:// URI.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", localPath, err)
	}

	key := u.Key(localPath)
	contentType := "application/octet-stream"
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(localPath), ".")); err == nil {
		contentType = f.ContentType()
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", u.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
