package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bitfantasy/nimo-crm/internal/crm/apperr"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// 附件约束：单个请求最多5个文件，单文件25MB
const (
	MaxAttachmentCount = 5
	MaxAttachmentSize  = 25 << 20
)

// AttachmentService 附件存储服务（MinIO）
type AttachmentService struct {
	client *minio.Client
	bucket string
}

func NewAttachmentService(client *minio.Client, bucket string) *AttachmentService {
	return &AttachmentService{client: client, bucket: bucket}
}

// UploadResult 上传结果
type UploadResult struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Upload 上传附件
func (s *AttachmentService) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (*UploadResult, error) {
	if s.client == nil {
		return nil, apperr.Upstream("附件存储", fmt.Errorf("minio client not configured"))
	}
	if size > MaxAttachmentSize {
		return nil, apperr.Validation("file", "单个附件不能超过25MB")
	}

	objectName := fmt.Sprintf("crm/%s/%s%s",
		time.Now().Format("200601"),
		uuid.New().String(),
		filepath.Ext(filename),
	)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, apperr.Upstream("附件存储", err)
	}

	return &UploadResult{
		Name: filename,
		URL:  fmt.Sprintf("/%s/%s", s.bucket, objectName),
		Size: size,
	}, nil
}

// PresignedURL 生成附件下载链接
func (s *AttachmentService) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if s.client == nil {
		return "", apperr.Upstream("附件存储", fmt.Errorf("minio client not configured"))
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", apperr.Upstream("附件存储", err)
	}
	return u.String(), nil
}
