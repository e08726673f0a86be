// Package archive keeps a copy of every downloaded raster in an S3 bucket.
package archive

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"k8s.io/klog/v2"
)

// PutObjectAPI is the subset of the S3 client used by S3Mirror.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror uploads local files to a bucket, keyed by the path of the URL they came from.
type S3Mirror struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Mirror creates a mirror backed by client.
func NewS3Mirror(client PutObjectAPI, bucket, prefix string) *S3Mirror {
	return &S3Mirror{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// New loads AWS configuration from the default chain and returns a mirror for bucket.
func New(ctx context.Context, region, bucket, prefix string) (*S3Mirror, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3Mirror(s3.NewFromConfig(awsCfg), bucket, prefix), nil
}

// Key returns the object key for a file fetched from sourceURL.
func (m *S3Mirror) Key(sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("invalid source URL: %w", err)
	}
	p := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
	if p == "" || p == "." {
		return "", fmt.Errorf("source URL %q has no path", sourceURL)
	}
	if m.prefix == "" {
		return p, nil
	}
	return m.prefix + "/" + p, nil
}

// Mirror uploads localPath.
func (m *S3Mirror) Mirror(ctx context.Context, localPath, sourceURL string) error {
	key, err := m.Key(sourceURL)
	if err != nil {
		return err
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(localPath); err == nil {
		contentType = mt.String()
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", m.bucket, key, err)
	}

	klog.FromContext(ctx).V(1).Info("mirrored file", "bucket", m.bucket, "key", key, "contentType", contentType)
	return nil
}
