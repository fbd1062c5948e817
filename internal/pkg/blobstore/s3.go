package blobstore

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"

	"emperror.dev/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"
)

// S3Options configures an S3-compatible store.
type S3Options struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	// CustomDomain, when set, replaces the endpoint in public URLs.
	CustomDomain string
}

// S3 stores blobs in S3 or any S3-compatible service; buckets map 1:1.
type S3 struct {
	client *s3.Client
	opts   S3Options
}

func NewS3(opts S3Options) (*S3, error) {
	if opts.Region == "" || opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
		return nil, errors.New("incomplete s3 config: region/access_key_id/secret_access_key are required")
	}
	s3opts := s3.Options{
		Region:       opts.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		UsePathStyle: opts.PathStyle,
	}
	if opts.Endpoint != "" {
		s3opts.BaseEndpoint = aws.String(opts.Endpoint)
	}
	return &S3{client: s3.New(s3opts), opts: opts}, nil
}

func (s *S3) Put(ctx context.Context, bucket, objectPath string, data []byte, opts PutOptions) (Object, error) {
	key, err := CleanPath(objectPath)
	if err != nil {
		return Object{}, wrap("put", bucket, objectPath, err)
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	}
	if opts.CacheControl != "" {
		in.CacheControl = aws.String(opts.CacheControl)
	}
	if !opts.Overwrite {
		in.IfNoneMatch = aws.String("*")
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		if isPreconditionFailed(err) {
			err = ErrObjectExists
		}
		return Object{}, wrap("put", bucket, key, err)
	}
	return Object{Bucket: bucket, Path: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *S3) Get(ctx context.Context, bucket, objectPath string) ([]byte, error) {
	key, err := CleanPath(objectPath)
	if err != nil {
		return nil, wrap("get", bucket, objectPath, err)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			err = ErrNotFound
		}
		return nil, wrap("get", bucket, key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, wrap("get", bucket, key, err)
	}
	return data, nil
}

func (s *S3) PublicURL(bucket, objectPath string) string {
	key, err := CleanPath(objectPath)
	if err != nil {
		return ""
	}
	escaped := escapeKey(key)
	if s.opts.CustomDomain != "" {
		return s.opts.CustomDomain + "/" + escaped
	}
	if s.opts.Endpoint != "" {
		base := strings.TrimRight(s.opts.Endpoint, "/")
		if s.opts.PathStyle {
			return base + "/" + url.PathEscape(bucket) + "/" + escaped
		}
		if u, err := url.Parse(base); err == nil {
			u.Host = bucket + "." + u.Host
			return u.String() + "/" + escaped
		}
	}
	return "https://" + bucket + ".s3." + s.opts.Region + ".amazonaws.com/" + escaped
}

// Remove deletes the given keys in one batch request.
func (s *S3) Remove(ctx context.Context, bucket string, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	ids := make([]types.ObjectIdentifier, 0, len(paths))
	for _, p := range paths {
		key, err := CleanPath(p)
		if err != nil {
			return wrap("remove", bucket, p, err)
		}
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
	}
	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return wrap("remove", bucket, strings.Join(paths, ","), err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return wrap("remove", bucket, aws.ToString(first.Key), errors.Errorf("%s: %s", aws.ToString(first.Code), aws.ToString(first.Message)))
	}
	return nil
}

func (s *S3) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var out []Object
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, wrap("list", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, Object{
				Bucket:       bucket,
				Path:         aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return out, nil
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

func isPreconditionFailed(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "PreconditionFailed"
}
