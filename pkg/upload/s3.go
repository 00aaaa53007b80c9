package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config describes how to reach an S3-compatible endpoint.
type S3Config struct {
	Region    string
	Endpoint  string // Empty for AWS; set for MinIO, R2 and friends
	AccessKey string
	SecretKey string
	PathStyle bool
}

// NewS3Client builds an S3 client from static settings.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
		// Plain PUT bodies keep S3-compatible servers happy.
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		creds := aws.Credentials{AccessKeyID: cfg.AccessKey, SecretAccessKey: cfg.SecretKey, Source: "shipyard"}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return s3.New(opts)
}

// S3Store stores uploads in an S3 bucket.
//
//	client := upload.NewS3Client(upload.S3Config{Region: "us-east-1"})
//	store := upload.NewS3Store(client, "my-bucket", "uploads/", 50<<20)
type S3Store struct {
	client    *s3.Client
	bucket    string
	prefix    string
	maxSize   int64
	urlExpiry time.Duration
}

// NewS3Store creates an S3 upload store. maxSize 0 means no limit.
func NewS3Store(client *s3.Client, bucket, prefix string, maxSize int64) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		prefix:    prefix,
		maxSize:   maxSize,
		urlExpiry: 24 * time.Hour,
	}
}

// WithURLExpiry sets how long presigned URLs are valid.
func (s *S3Store) WithURLExpiry(d time.Duration) *S3Store {
	s.urlExpiry = d
	return s
}

// Save implements Store. The part is buffered so the upload has a known
// length; maxSize bounds the buffer.
func (s *S3Store) Save(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := limitedCopy(&buf, r, s.maxSize); err != nil {
		return "", err
	}

	tempID := newTempID()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + tempID),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": filename,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload: s3 put: %w", err)
	}
	return tempID, nil
}

// Claim implements Store. The object is deleted when the File is closed.
func (s *S3Store) Claim(ctx context.Context, tempID string) (*File, error) {
	if !validTempID(tempID) {
		return nil, ErrNotFound
	}
	key := s.prefix + tempID

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ErrNotFound
	}

	filename := tempID
	for k, v := range out.Metadata {
		if strings.EqualFold(k, "original-filename") {
			filename = v
		}
	}
	contentType := "application/octet-stream"
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	var size int64
	if out.ContentLength != nil {
		size = *out.ContentLength
	}

	url := ""
	presigned, err := s3.NewPresignClient(s.client).PresignGetObject(ctx,
		&s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)},
		s3.WithPresignExpires(s.urlExpiry),
	)
	if err == nil {
		url = presigned.URL
	}

	return &File{
		ID:          tempID,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		URL:         url,
		Reader:      &deleteOnCloseObject{ReadCloser: out.Body, store: s, key: key},
	}, nil
}

// Cleanup implements Store.
func (s *S3Store) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var expired []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, obj := range page.Contents {
			if obj.Key != nil && obj.LastModified != nil && obj.LastModified.Before(cutoff) {
				expired = append(expired, *obj.Key)
			}
		}
	}

	for _, key := range expired {
		if err := s.delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3Store) delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

type deleteOnCloseObject struct {
	io.ReadCloser
	store *S3Store
	key   string
	once  sync.Once
}

func (o *deleteOnCloseObject) Close() error {
	err := o.ReadCloser.Close()
	o.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if delErr := o.store.delete(ctx, o.key); err == nil {
			err = delErr
		}
	})
	return err
}
