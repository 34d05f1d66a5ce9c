// Package storage puts user uploads into S3 and hands back their public URL.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/zfogg/showcase/internal/util"
)

// AvatarUploader stores profile photos.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, body io.Reader, size int64, userID, filename string) (*UploadResult, error)
}

var _ AvatarUploader = (*S3Uploader)(nil)

// objectAPI is the part of the S3 client the uploader uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Uploader writes objects to one bucket.
type S3Uploader struct {
	client  objectAPI
	bucket  string
	region  string
	baseURL string
}

// UploadResult contains the result of an S3 upload
type UploadResult struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Size   int64  `json:"size"`
}

// NewS3Uploader creates an uploader using the default AWS credential chain.
// baseURL is the public (CDN) prefix objects are served from.
func NewS3Uploader(ctx context.Context, region, bucket, baseURL string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Uploader{client: s3.NewFromConfig(cfg), bucket: bucket, region: region, baseURL: baseURL}, nil
}

// AvatarKey returns users/{userID}/avatar/{uuid}{ext}.
func AvatarKey(userID, filename string) string {
	return fmt.Sprintf("users/%s/avatar/%s%s", userID, uuid.New().String(), strings.ToLower(filepath.Ext(filename)))
}

// UploadAvatar stores a profile photo under a fresh key so CDN caches never serve
// the previous image.
func (u *S3Uploader) UploadAvatar(ctx context.Context, body io.Reader, size int64, userID, filename string) (*UploadResult, error) {
	contentType, ok := util.ImageContentType(filename)
	if !ok {
		return nil, fmt.Errorf("unsupported image type %q", filepath.Ext(filename))
	}
	key := AvatarKey(userID, filename)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("max-age=31536000, immutable"),
		Metadata: map[string]string{
			"user-id":          userID,
			"upload-timestamp": time.Now().UTC().Format(time.RFC3339),
			"file-type":        "avatar",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		Key:    key,
		URL:    u.publicURL(key),
		Bucket: u.bucket,
		Size:   size,
	}, nil
}

// DeleteFile deletes a file from S3
func (u *S3Uploader) DeleteFile(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	if _, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.bucket)}); err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}
	return nil
}

func (u *S3Uploader) publicURL(key string) string {
	return strings.TrimSuffix(u.baseURL, "/") + "/" + key
}
