// Package s3 stores room images in an S3 compatible bucket and hands back
// public URLs for them.
package s3

//go:generate go run go.uber.org/mock/mockgen -source=./s3.go -destination=./mocks/s3_mock.go -package=mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"innkeeper/config"
	"innkeeper/infras/otel"
	"innkeeper/shared/constant"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

const (
	otelAttrObjectKey = "s3.key"
	otelAttrBucket    = "s3.bucket"
)

type S3 interface {
	UploadFile(ctx context.Context, bucketName, directory string, file multipart.File, fileHeader *multipart.FileHeader, fileName string) (url string, err error)
	UploadFileBytes(ctx context.Context, bucketName, directory, fileName, contentType string, fileData []byte) (url string, err error)
	DeleteFile(ctx context.Context, bucketName, directory, objectName string) error
	GetObjectNameFromURL(bucketName, url string) (objectName string)
}

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Impl struct {
	client objectAPI
	cfg    config.Config
	otel   otel.Otel
}

func New(cfg *config.Config, ot otel.Otel) S3 {
	store := cfg.External.S3

	awsCfg, err := awsConfig.LoadDefaultConfig(
		context.Background(),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(store.AccessKeyID, store.SecretAccessKey, "")),
		awsConfig.WithRegion(store.Region),
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if store.APIEndpoint != "" {
			o.BaseEndpoint = aws.String(store.APIEndpoint)
		}

		o.UsePathStyle = store.UsePathStyle
	})

	return &s3Impl{client: client, cfg: *cfg, otel: ot}
}

func (svc *s3Impl) bucket(name string) string {
	if name == "" {
		return svc.cfg.External.S3.BucketName
	}

	return name
}

// UploadFile streams a multipart upload; its content type comes from the part header.
func (svc *s3Impl) UploadFile(ctx context.Context, bucketName, directory string, file multipart.File, fileHeader *multipart.FileHeader, fileName string) (string, error) {
	contentType := fileHeader.Header.Get(constant.RequestHeaderContentType)

	return svc.put(ctx, svc.bucket(bucketName), path.Join(directory, fileName), contentType, file, fileHeader.Size)
}

func (svc *s3Impl) UploadFileBytes(ctx context.Context, bucketName, directory, fileName, contentType string, fileData []byte) (string, error) {
	return svc.put(ctx, svc.bucket(bucketName), path.Join(directory, fileName), contentType, bytes.NewReader(fileData), int64(len(fileData)))
}

func (svc *s3Impl) put(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) (url string, err error) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelS3ScopeName, constant.OtelS3ScopeName+".Put")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttributes(map[string]any{otelAttrBucket: bucket, otelAttrObjectKey: key})

	_, err = svc.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}

	return svc.publicURL(key), nil
}

func (svc *s3Impl) DeleteFile(ctx context.Context, bucketName, directory, objectName string) (err error) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelS3ScopeName, constant.OtelS3ScopeName+".Delete")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	bucket, key := svc.bucket(bucketName), path.Join(directory, objectName)
	scope.SetAttributes(map[string]any{otelAttrBucket: bucket, otelAttrObjectKey: key})

	if _, err = svc.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("failed to delete %s from S3: %w", key, err)
	}

	return nil
}

func (svc *s3Impl) publicURL(key string) string {
	return strings.TrimSuffix(svc.cfg.External.S3.PublicDomain, "/") + "/" + key
}

// GetObjectNameFromURL returns the object key (directory/name) behind a URL
// produced by an upload, or empty when the URL is not served from this bucket.
func (svc *s3Impl) GetObjectNameFromURL(bucketName, url string) string {
	store := svc.cfg.External.S3

	prefixes := make([]string, 0, 2)
	if domain := strings.TrimSuffix(store.PublicDomain, "/"); domain != "" {
		prefixes = append(prefixes, domain+"/")
	}

	if endpoint := strings.TrimSuffix(store.APIEndpoint, "/"); endpoint != "" {
		prefixes = append(prefixes, endpoint+"/"+svc.bucket(bucketName)+"/")
	}

	for _, prefix := range prefixes {
		if key, ok := strings.CutPrefix(url, prefix); ok && key != "" {
			return key
		}
	}

	return ""
}
