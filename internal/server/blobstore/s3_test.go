package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/smartids/internal/common"
	"github.com/dmitrijs2005/smartids/internal/logging"
	"github.com/dmitrijs2005/smartids/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	objects map[string][]byte
	putErr  error
	getErr  error
	delErr  error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.delErr != nil {
		return nil, f.delErr
	}
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestS3Store(api s3API) *S3Store {
	return &S3Store{client: api, bucket: "smartids", log: logging.Nop(), now: time.Now}
}

func TestS3Store_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	s := newTestS3Store(api)

	id, err := s.Put(ctx, []byte("ciphertext"))
	require.NoError(t, err)
	require.NoError(t, ValidateKey(id))
	assert.Contains(t, api.objects, "smartids/"+id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext"), got)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, common.ErrBlobNotFound)
}

func TestS3Store_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	id := NewStorageKey(time.Now())

	api := newFakeS3()
	api.getErr = &smithy.GenericAPIError{Code: "NotFound", Message: "missing"}
	_, err := newTestS3Store(api).Get(ctx, id)
	assert.ErrorIs(t, err, common.ErrBlobNotFound)

	api.getErr = &smithy.GenericAPIError{Code: "AccessDenied"}
	_, err = newTestS3Store(api).Get(ctx, id)
	assert.ErrorIs(t, err, common.ErrStorage)

	api.putErr = errors.New("network down")
	_, err = newTestS3Store(api).Put(ctx, []byte("x"))
	assert.ErrorIs(t, err, common.ErrStorage)

	api.delErr = &types.NoSuchKey{}
	assert.ErrorIs(t, newTestS3Store(api).Delete(ctx, id), common.ErrBlobNotFound)

	_, err = newTestS3Store(api).Get(ctx, "../secret")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestNewS3Store_AppliesSettings(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	fake := newFakeS3()
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(&opts)
		}
		return fake
	}

	cfg := &config.Config{
		S3Region:       "us-east-1",
		S3AccessKey:    "minioadmin",
		S3SecretKey:    "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "smartids",
	}
	s, err := NewS3Store(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, "smartids", s.bucket)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Store_Errors(t *testing.T) {
	_, err := NewS3Store(context.Background(), &config.Config{}, logging.Nop())
	assert.ErrorIs(t, err, common.ErrStorage)

	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}
	_, err = NewS3Store(context.Background(), &config.Config{S3Bucket: "b"}, logging.Nop())
	assert.ErrorIs(t, err, common.ErrStorage)
}
