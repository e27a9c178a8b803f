// Package s3 处理对象存储操作，实现 store.BlobStore.
package s3

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/internal/store"
	nlog "github.com/yeisme/drivevault/pkg/log"
)

const defaultPresignExpiry = 15 * time.Minute

// Client 包装 MinIO 客户端，所有对象保存在同一个存储桶中.
type Client struct {
	*minio.Client

	bucket  string
	timeout time.Duration
}

var _ store.BlobStore = (*Client)(nil)

// New 初始化 MinIO 客户端，create_bucket 为 true 时确保存储桶存在.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("drivevault", configs.AppVersion)

	c := &Client{Client: cli, bucket: cfg.BucketName, timeout: cfg.RequestTimeout}

	if cfg.CreateBucket {
		if err := c.ensureBucket(ctx, cfg.Region); err != nil {
			return nil, err
		}
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("s3 connected")

	return c, nil
}

func (c *Client) ensureBucket(ctx context.Context, region string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	exists, err := c.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", c.bucket, err)
	}

	if exists {
		return nil
	}

	if err := c.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", c.bucket, err)
	}

	nlog.Logger().Info().Str("bucket", c.bucket).Msg("bucket created")

	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.timeout)
}

// Bucket 存储桶名称.
func (c *Client) Bucket() string {
	return c.bucket
}

// PutObject 上传对象，size 未知时传 -1.
func (c *Client) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.Client.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}

	return nil
}

// RemoveObject 删除对象，对象不存在视为成功.
func (c *Client) RemoveObject(ctx context.Context, key string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	err := c.Client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err == nil || IsNotFound(err) {
		return nil
	}

	return fmt.Errorf("remove object %s: %w", key, err)
}

// PresignGet 生成限时下载链接，Inline 控制 Content-Disposition.
func (c *Client) PresignGet(ctx context.Context, key string, opts store.PresignOptions) (string, error) {
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}

	params := url.Values{}
	params.Set("response-content-disposition", ContentDisposition(opts.FileName, opts.Inline))

	u, err := c.PresignedGetObject(ctx, c.bucket, key, expiry, params)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}

	return u.String(), nil
}

// HealthCheck 检查存储桶可访问.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.BucketExists(ctx, c.bucket)

	return err
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}

// IsNotFound 判断对象或存储桶不存在.
func IsNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)

	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject"
}

// ContentDisposition 构造 Content-Disposition 头.
func ContentDisposition(name string, inline bool) string {
	kind := "attachment"
	if inline {
		kind = "inline"
	}

	if name == "" {
		return kind
	}

	return mime.FormatMediaType(kind, map[string]string{"filename": name})
}
