// Package storage keeps user photos in an S3 bucket.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/config"
)

// S3Store uploads files under Folder and returns their public URL.
type S3Store struct {
	client s3iface.S3API
	bucket string
	region string
	folder string
}

// NewS3 opens a session with static credentials when they are configured and
// falls back to the default AWS credential chain otherwise.
func NewS3(cfg config.S3Config) (*S3Store, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewS3WithClient(s3.New(sess), cfg), nil
}

func NewS3WithClient(client s3iface.S3API, cfg config.S3Config) *S3Store {
	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		folder: strings.Trim(cfg.Folder, "/"),
	}
}

// Upload stores the local file under a random key and returns its URL.
func (s *S3Store) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	key := uuid.NewString() + strings.ToLower(filepath.Ext(localPath))
	if s.folder != "" {
		key = s.folder + "/" + key
	}

	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return s.urlPrefix() + key, nil
}

// Delete removes an object given either its URL or its bare key.
func (s *S3Store) Delete(ctx context.Context, ref string) error {
	key := strings.TrimPrefix(ref, s.urlPrefix())
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

func (s *S3Store) urlPrefix() string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region)
}
