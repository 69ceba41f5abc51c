package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aquaticgg/krepo/config/configkey"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const defaultS3Endpoint = "s3.amazonaws.com"

type ObjectStoreConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Secure    bool
	PathStyle bool
}

func ObjectStoreConfigFromViper() ObjectStoreConfig {
	return ObjectStoreConfig{
		Endpoint:  viper.GetString(configkey.S3Endpoint),
		Region:    viper.GetString(configkey.S3Region),
		Bucket:    viper.GetString(configkey.S3Bucket),
		AccessKey: viper.GetString(configkey.S3AccessKey),
		SecretKey: viper.GetString(configkey.S3SecretKey),
		Secure:    viper.GetBool(configkey.S3Secure),
		PathStyle: viper.GetBool(configkey.S3PathStyle),
	}
}

// ObjectStore keeps objects in a single S3 compatible bucket, keyed by storage key.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

var _ Provider = (*ObjectStore)(nil)

// NewMinioClient builds the client without contacting the endpoint.
func NewMinioClient(cfg ObjectStoreConfig) (*minio.Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultS3Endpoint
	}

	lookup := minio.BucketLookupAuto
	if cfg.PathStyle {
		lookup = minio.BucketLookupPath
	}

	logrus.Infof("S3 endpoint=%s, region=%s, bucket=%s, secure=%t, pathStyle=%t",
		endpoint, cfg.Region, cfg.Bucket, cfg.Secure, cfg.PathStyle)

	return minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.Secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
}

// NewObjectStore connects to the bucket and fails when it is missing or the
// credentials are refused.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig) (*ObjectStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("no bucket configured for object storage")
	}

	client, err := NewMinioClient(cfg)
	if err != nil {
		return nil, &Failure{Op: "init", Key: cfg.Bucket, Err: err}
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, failure("init", cfg.Bucket, err)
	}
	if !exists {
		return nil, &Failure{Op: "init", Key: cfg.Bucket, Code: "NoSuchBucket", Err: fmt.Errorf("bucket %q does not exist", cfg.Bucket)}
	}

	return &ObjectStore{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the configured bucket when it does not exist yet and
// reports whether it did.
func EnsureBucket(ctx context.Context, cfg ObjectStoreConfig) (bool, error) {
	client, err := NewMinioClient(cfg)
	if err != nil {
		return false, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return false, failure("init", cfg.Bucket, err)
	}
	if exists {
		return false, nil
	}

	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return false, failure("init", cfg.Bucket, err)
	}

	return true, nil
}

func (o *ObjectStore) Put(ctx context.Context, key string, r io.Reader, length int64) error {
	tr := &trackingReader{r: r}
	info, err := o.client.PutObject(ctx, o.bucket, key, tr, length, minio.PutObjectOptions{})
	if err != nil {
		if (tr.eof && tr.n < length) || ctx.Err() != nil {
			return ErrIncompleteUpload
		}
		return failure("put", key, err)
	}

	logrus.Debugf("Saved to bucket: %s/%s (%d bytes)", info.Bucket, info.Key, info.Size)

	return nil
}

func (o *ObjectStore) Get(ctx context.Context, key string) (*Object, error) {
	info, err := o.client.StatObject(ctx, o.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotExist
		}
		return nil, failure("get", key, err)
	}

	obj, err := o.client.GetObject(ctx, o.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, failure("get", key, err)
	}

	return &Object{ReadCloser: obj, Size: info.Size}, nil
}

func (o *ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := o.client.StatObject(ctx, o.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, failure("exists", key, err)
	}

	return true, nil
}

func (o *ObjectStore) Delete(ctx context.Context, key string) bool {
	if _, err := o.client.StatObject(ctx, o.bucket, key, minio.StatObjectOptions{}); err != nil {
		if !isNoSuchKey(err) {
			logrus.Errorf("Failed to stat %s before delete: %v", key, err)
		}
		return false
	}

	if err := o.client.RemoveObject(ctx, o.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		logrus.Errorf("Failed to delete %s: %v", key, err)
		return false
	}

	return true
}

func (o *ObjectStore) Usage(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var total int64
	for object := range o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return 0, failure("usage", "", object.Err)
		}
		total += object.Size
	}

	return total, nil
}

func (o *ObjectStore) Close() error {
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func failure(op, key string, err error) *Failure {
	return &Failure{Op: op, Key: key, Code: minio.ToErrorResponse(err).Code, Err: err}
}

// trackingReader remembers how much was read and whether the source ran dry.
type trackingReader struct {
	r   io.Reader
	n   int64
	eof bool
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	t.n += int64(n)
	if err == io.EOF {
		t.eof = true
	}
	return n, err
}
