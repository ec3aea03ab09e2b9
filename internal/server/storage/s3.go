// Package storage archives produced PDFs in an S3-compatible bucket and
// hands out presigned download links.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Seams for tests.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Archive stores tool outputs.
type Archive interface {
	Put(ctx context.Context, userID, tool, fileName string, data []byte) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// Options configure S3Archive.
type Options struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
	URLExpiry    time.Duration
}

type S3Archive struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
	now     func() time.Time
}

// NewS3Archive builds the S3 client once. Path-style addressing is used
// so MinIO endpoints work without DNS buckets.
func NewS3Archive(ctx context.Context, o Options) (*S3Archive, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.User, o.Password, "")),
	)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(so *s3.Options) {
		if o.BaseEndpoint != "" {
			so.BaseEndpoint = aws.String(o.BaseEndpoint)
		}
		so.UsePathStyle = true
	})

	expiry := o.URLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &S3Archive{
		client:  client,
		presign: newS3PresignClient(client),
		bucket:  o.Bucket,
		expiry:  expiry,
		now:     time.Now,
	}, nil
}

// StorageKey builds users/<user>/<y>/<m>/<d>/<uuid>/<tool>-<file>.
// Anonymous uploads go under users/anonymous.
func StorageKey(now time.Time, userID, tool, fileName string) string {
	if userID == "" {
		userID = "anonymous"
	}
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" {
		name = "document.pdf"
	}
	return fmt.Sprintf("users/%s/%d/%d/%d/%v/%s-%s", userID, now.Year(), now.Month(), now.Day(), uuid.New(), tool, name)
}

func (a *S3Archive) Put(ctx context.Context, userID, tool, fileName string, data []byte) (string, error) {
	key := StorageKey(a.now().UTC(), userID, tool, fileName)

	_, err := putObject(a.client, ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/pdf"),
	})
	if err != nil {
		return "", err
	}

	return key, nil
}

func (a *S3Archive) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := presignGetObject(a.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(a.expiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
