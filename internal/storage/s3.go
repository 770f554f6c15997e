package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var (
	ErrNotFound     = errors.New("object not found")
	ErrAccessDenied = errors.New("object access denied")
)

type Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UsePathStyle bool
	PresignTTL   time.Duration
}

// Object is a fetched blob. ContentType is whatever the bucket recorded, possibly empty.
type Object struct {
	Body        []byte
	ContentType string
}

type ObjectInfo struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// Gateway is the only component that talks to the bucket. Everything above it
// deals in keys; URLs exist only as presigned output.
type Gateway struct {
	cfg       Config
	client    *s3.Client
	presigner *s3.PresignClient
}

func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 credentials are required")
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = time.Hour
	}

	options := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	client := s3.New(options)

	return &Gateway{
		cfg:       cfg,
		client:    client,
		presigner: s3.NewPresignClient(client),
	}, nil
}

func (g *Gateway) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if len(data) == 0 {
		return fmt.Errorf("no data to upload")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, classify(err))
	}
	return nil
}

func (g *Gateway) Get(ctx context.Context, key string) (*Object, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, classify(err))
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return &Object{Body: body, ContentType: aws.ToString(out.ContentType)}, nil
}

func (g *Gateway) Delete(ctx context.Context, key string) error {
	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, classify(err))
	}
	return nil
}

// List walks every object under prefix.
func (g *Gateway) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.cfg.Bucket),
		Prefix: aws.String(prefix),
	})

	var out []ObjectInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, classify(err))
		}
		for _, obj := range page.Contents {
			out = append(out, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				LastModified: aws.ToTime(obj.LastModified),
				Size:         aws.ToInt64(obj.Size),
			})
		}
	}
	return out, nil
}

// PresignGet returns a time-limited GET URL for a key or a legacy stored URL.
// Foreign URLs are returned untouched and an empty reference yields "".
func (g *Gateway) PresignGet(ctx context.Context, ref string) (string, error) {
	key, external := g.KeyFromRef(ref)
	if key == "" || external {
		return key, nil
	}
	req, err := g.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(g.cfg.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// KeyFromRef reduces a stored reference to a bucket key. Older rows hold full
// virtual-hosted or path-style URLs; external reports a URL that is not ours.
func (g *Gateway) KeyFromRef(ref string) (key string, external bool) {
	return keyFromRef(ref, g.cfg)
}

func keyFromRef(ref string, cfg Config) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return strings.TrimPrefix(ref, "/"), false
	}

	prefixes := []string{
		fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", cfg.Bucket, cfg.Region),
		fmt.Sprintf("https://%s.s3.amazonaws.com/", cfg.Bucket),
		fmt.Sprintf("https://s3.%s.amazonaws.com/%s/", cfg.Region, cfg.Bucket),
	}
	if cfg.Endpoint != "" {
		prefixes = append(prefixes, strings.TrimRight(cfg.Endpoint, "/")+"/"+cfg.Bucket+"/")
	}
	for _, p := range prefixes {
		if strings.HasPrefix(ref, p) {
			key := strings.TrimPrefix(ref, p)
			if i := strings.IndexByte(key, '?'); i >= 0 {
				key = key[:i]
			}
			return key, false
		}
	}
	return ref, true
}

func classify(err error) error {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}
	return err
}
