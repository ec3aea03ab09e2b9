package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubClients(t *testing.T) *s3.Options {
	t.Helper()

	origLoad, origNewS3, origNewPre := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient
	origPut, origGet := putObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		putObject = origPut
		presignGetObject = origGet
	})

	captured := &s3.Options{}
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(captured)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }

	return captured
}

func newArchive(t *testing.T) (*S3Archive, *s3.Options) {
	t.Helper()
	opts := stubClients(t)

	a, err := NewS3Archive(context.Background(), Options{
		User: "minioadmin", Password: "minioadmin", Bucket: "pdtools",
		Region: "us-east-1", BaseEndpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	return a, opts
}

func TestNewS3Archive_AppliesOptions(t *testing.T) {
	a, opts := newArchive(t)

	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, 15*time.Minute, a.expiry)
}

func TestNewS3Archive_LoadError(t *testing.T) {
	stubClients(t)
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	_, err := NewS3Archive(context.Background(), Options{Region: "us-east-1"})
	assert.EqualError(t, err, "load-fail")
}

func TestPut(t *testing.T) {
	a, _ := newArchive(t)

	var got *s3.PutObjectInput
	var body string
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		got = in
		b, _ := io.ReadAll(in.Body)
		body = string(b)
		return &s3.PutObjectOutput{}, nil
	}

	key, err := a.Put(context.Background(), "u1", "protect", "report.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "users/u1/2026/10/18/"), key)
	assert.True(t, strings.HasSuffix(key, "/protect-report.pdf"), key)
	assert.Equal(t, "pdtools", *got.Bucket)
	assert.Equal(t, key, *got.Key)
	assert.Equal(t, "application/pdf", *got.ContentType)
	assert.Equal(t, "%PDF", body)
}

func TestPut_Error(t *testing.T) {
	a, _ := newArchive(t)
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("put-fail")
	}

	_, err := a.Put(context.Background(), "", "unlock", "a.pdf", nil)
	assert.EqualError(t, err, "put-fail")
}

func TestPresignGet(t *testing.T) {
	a, _ := newArchive(t)

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		if po.Expires != 15*time.Minute {
			t.Fatalf("expiry not applied: %v", po.Expires)
		}
		return &v4.PresignedHTTPRequest{URL: "http://127.0.0.1:9000/pdtools/" + *in.Key}, nil
	}

	url, err := a.PresignGet(context.Background(), "users/u1/x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/pdtools/users/u1/x.pdf", url)

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-get-fail")
	}
	_, err = a.PresignGet(context.Background(), "k")
	assert.EqualError(t, err, "presign-get-fail")
}

func TestStorageKey(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	assert.True(t, strings.HasPrefix(StorageKey(now, "", "compare", "a.pdf"), "users/anonymous/2026/1/2/"))
	assert.True(t, strings.HasSuffix(StorageKey(now, "u", "protect", `C:\docs\x.pdf`), "/protect-x.pdf"))
	assert.True(t, strings.HasSuffix(StorageKey(now, "u", "protect", "../../etc/passwd"), "/protect-passwd"))
	assert.True(t, strings.HasSuffix(StorageKey(now, "u", "protect", ""), "/protect-document.pdf"))
}
