package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"media-transcode-service/ddd/domain/gateway"
	"media-transcode-service/ddd/domain/vo"
	"media-transcode-service/internal/resource"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/errno"
	"media-transcode-service/pkg/logger"
)

// MinioStorage 多逻辑桶的MinIO存储实现。每个逻辑桶有独立的
// endpoint、凭证、Key前缀与公开域名。
type MinioStorage struct {
	minioResource *resource.MinioResource
	httpClient    *http.Client
}

// NewMinioStorage 创建MinIO存储网关
func NewMinioStorage(minioResource *resource.MinioResource) gateway.StorageGateway {
	return &MinioStorage{
		minioResource: minioResource,
		httpClient: &http.Client{
			Timeout: 30 * time.Minute,
		},
	}
}

// SignedDownloadURL 签发限时GET地址
func (s *MinioStorage) SignedDownloadURL(ctx context.Context, objectKey string, bucket vo.StorageBucket, ttl time.Duration) (string, error) {
	client, bc, err := s.bucketHandle(bucket)
	if err != nil {
		return "", err
	}

	u, err := client.PresignedGetObject(ctx, bc.BucketName, objectKey, ttl, nil)
	if err != nil {
		logger.Error("Failed to presign GET URL", map[string]interface{}{
			"bucket":     bucket.String(),
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("presign get url failed: %w", err)
	}
	return u.String(), nil
}

// SignedUploadPartURL 为分片上传签发限时PUT地址
func (s *MinioStorage) SignedUploadPartURL(ctx context.Context, objectKey, uploadID string, partNumber int, bucket vo.StorageBucket, ttl time.Duration) (string, error) {
	client, bc, err := s.bucketHandle(bucket)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("uploadId", uploadID)
	params.Set("partNumber", fmt.Sprintf("%d", partNumber))

	u, err := client.Presign(ctx, http.MethodPut, bc.BucketName, objectKey, ttl, params)
	if err != nil {
		logger.Error("Failed to presign upload part URL", map[string]interface{}{
			"bucket":      bucket.String(),
			"object_key":  objectKey,
			"upload_id":   uploadID,
			"part_number": partNumber,
			"error":       err.Error(),
		})
		return "", fmt.Errorf("presign upload part url failed: %w", err)
	}
	return u.String(), nil
}

// UploadLocalFile 流式上传本地文件，返回公开访问URL
func (s *MinioStorage) UploadLocalFile(ctx context.Context, localPath, objectKey, contentType string, bucket vo.StorageBucket) (string, error) {
	client, bc, err := s.bucketHandle(bucket)
	if err != nil {
		return "", err
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", &gateway.UploadError{ObjectKey: objectKey, Cause: err}
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return "", &gateway.UploadError{ObjectKey: objectKey, Cause: err}
	}

	if contentType == "" {
		contentType = contentTypeFromExtension(objectKey)
	}

	_, err = client.PutObject(ctx, bc.BucketName, objectKey, file, fileInfo.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("Failed to upload file to MinIO", map[string]interface{}{
			"bucket":     bucket.String(),
			"local_path": localPath,
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return "", &gateway.UploadError{ObjectKey: objectKey, Cause: err}
	}

	logger.Info("File uploaded", map[string]interface{}{
		"bucket":     bucket.String(),
		"object_key": objectKey,
		"size":       fileInfo.Size(),
	})

	return s.PublicURL(objectKey, bucket), nil
}

// DownloadToFile 将签名URL指向的对象下载到本地路径
func (s *MinioStorage) DownloadToFile(ctx context.Context, signedURL, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create local directory failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return &gateway.DownloadError{URL: signedURL, Cause: err}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &gateway.DownloadError{URL: signedURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &gateway.DownloadError{
			URL:   signedURL,
			Cause: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	localFile, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local file failed: %w", err)
	}
	defer localFile.Close()

	if _, err := localFile.ReadFrom(resp.Body); err != nil {
		_ = os.Remove(localPath)
		return &gateway.DownloadError{URL: signedURL, Cause: err}
	}

	return nil
}

// ExtractKey 从历史URL形态还原对象Key，无法识别时返回空串
func (s *MinioStorage) ExtractKey(storedURL string, bucket vo.StorageBucket) string {
	bc, err := s.minioResource.BucketConfig(bucket)
	if err != nil {
		return ""
	}

	candidate := stripQuery(storedURL)

	// 绝对地址：剥离公开域名前缀
	base := strings.TrimSuffix(bc.PublicBase, "/")
	if base != "" && strings.HasPrefix(candidate, base+"/") {
		candidate = strings.TrimPrefix(candidate, base+"/")
	} else if strings.Contains(candidate, "://") {
		// 其他域名：尝试从路径里定位已知前缀
		u, parseErr := url.Parse(candidate)
		if parseErr != nil {
			return ""
		}
		candidate = strings.TrimPrefix(u.Path, "/")
		// 路径可能带桶名段
		candidate = strings.TrimPrefix(candidate, bc.BucketName+"/")
	} else {
		candidate = strings.TrimPrefix(candidate, "/")
	}

	if bc.KeyPrefix != "" && strings.HasPrefix(candidate, bc.KeyPrefix) {
		return candidate
	}
	return ""
}

// PublicURL 由Key推导公开URL，纯计算不走网络
func (s *MinioStorage) PublicURL(objectKey string, bucket vo.StorageBucket) string {
	bc, err := s.minioResource.BucketConfig(bucket)
	if err != nil {
		return objectKey
	}

	base := strings.TrimSuffix(bc.PublicBase, "/")
	if base == "" {
		scheme := "http"
		if bc.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, bc.Endpoint, bc.BucketName)
	}
	return base + "/" + strings.TrimPrefix(objectKey, "/")
}

func (s *MinioStorage) bucketHandle(bucket vo.StorageBucket) (*minio.Client, *config.BucketConfig, error) {
	bc, err := s.minioResource.BucketConfig(bucket)
	if err != nil {
		return nil, nil, errno.NewBizError(errno.ErrStorageBucketUnknown, err)
	}
	if bc.Endpoint == "" || bc.BucketName == "" || bc.AccessKeyID == "" || bc.SecretAccessKey == "" {
		return nil, nil, errno.NewBizError(errno.ErrStorageConfig,
			fmt.Errorf("bucket %q is not fully configured", bucket.String()))
	}

	client, err := s.minioResource.Client(bucket)
	if err != nil {
		return nil, nil, errno.NewBizError(errno.ErrStorageConfig, err)
	}
	return client, bc, nil
}

func stripQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// contentTypeFromExtension 根据扩展名推断内容类型
func contentTypeFromExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".ts":
		return "video/mp2t"
	case ".avi":
		return "video/x-msvideo"
	case ".mov":
		return "video/quicktime"
	case ".wmv":
		return "video/x-ms-wmv"
	case ".flv":
		return "video/x-flv"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}
