// s3.go

package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jacl-coder/TicTacTwo-Server/config"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

// ObjectPutter S3客户端中上传对象的部分
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SnapshotUploader 把玩家数据文件上传到S3兼容存储
type SnapshotUploader struct {
	client ObjectPutter
	bucket string
	prefix string
	now    func() time.Time
}

// NewSnapshotUploader 使用已有客户端创建上传器
func NewSnapshotUploader(client ObjectPutter, bucket, prefix string) *SnapshotUploader {
	return &SnapshotUploader{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
	}
}

// NewS3SnapshotUploader 根据配置创建S3客户端和上传器
func NewS3SnapshotUploader(ctx context.Context, cfg config.S3Config) (*SnapshotUploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("加载S3配置失败: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Store.Info("已启用S3备份: bucket=%s prefix=%s", cfg.Bucket, cfg.Prefix)
	return NewSnapshotUploader(client, cfg.Bucket, cfg.Prefix), nil
}

// Key 生成快照对象键: <prefix>players-<UTC时间>.dat
func (u *SnapshotUploader) Key(t time.Time) string {
	return fmt.Sprintf("%splayers-%s.dat", u.prefix, t.UTC().Format("20060102T150405Z"))
}

// Mirror 上传数据文件
func (u *SnapshotUploader) Mirror(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取快照失败: %w", err)
	}

	key := u.Key(u.now())
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("上传快照到S3失败: %w", err)
	}

	logger.Store.Debug("快照已上传: s3://%s/%s (%d 字节)", u.bucket, key, len(data))
	return nil
}
