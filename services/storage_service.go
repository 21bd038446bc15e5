package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
)

// ArtifactStorage reads and writes action code artifacts, addressed by the
// code key recorded on the catalog entry.
type ArtifactStorage interface {
	SaveArtifact(ctx context.Context, key string, code string) error
	GetArtifact(ctx context.Context, key string) (string, error)
	DeleteArtifact(ctx context.Context, key string) error
}

// LocalArtifactStorage implements ArtifactStorage on the local filesystem.
type LocalArtifactStorage struct {
	basePath string
}

func NewLocalArtifactStorage(basePath string) (*LocalArtifactStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, err
	}
	return &LocalArtifactStorage{basePath: basePath}, nil
}

func (s *LocalArtifactStorage) SaveArtifact(ctx context.Context, key string, code string) error {
	fullPath := filepath.Join(s.basePath, key)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(fullPath, []byte(code), 0644)
}

func (s *LocalArtifactStorage) GetArtifact(ctx context.Context, key string) (string, error) {
	fullPath := filepath.Join(s.basePath, key)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *LocalArtifactStorage) DeleteArtifact(ctx context.Context, key string) error {
	fullPath := filepath.Join(s.basePath, key)
	return os.Remove(fullPath)
}

// S3ArtifactStorage implements ArtifactStorage using AWS S3.
type S3ArtifactStorage struct {
	client *s3.Client
	bucket string
}

func NewS3ArtifactStorage(bucket string) (*S3ArtifactStorage, error) {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, err
	}

	// Instrument AWS SDK v2 with X-Ray for automatic S3 operation tracing
	awsv2.AWSV2Instrumentor(&cfg.APIOptions)

	client := s3.NewFromConfig(cfg)
	return &S3ArtifactStorage{client: client, bucket: bucket}, nil
}

func (s *S3ArtifactStorage) SaveArtifact(ctx context.Context, key string, code string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(code),
		ContentType: aws.String("text/plain"),
	})
	return err
}

func (s *S3ArtifactStorage) GetArtifact(ctx context.Context, key string) (string, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *S3ArtifactStorage) DeleteArtifact(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// NewArtifactStorage creates the artifact storage named by configuration.
func NewArtifactStorage(storageType, pathOrBucket string) (ArtifactStorage, error) {
	switch storageType {
	case "s3":
		return NewS3ArtifactStorage(pathOrBucket)
	case "local":
		return NewLocalArtifactStorage(pathOrBucket)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", storageType)
	}
}
