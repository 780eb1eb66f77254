package resource

import (
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"media-transcode-service/ddd/domain/vo"
	"media-transcode-service/pkg/assert"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/logger"
	"media-transcode-service/pkg/manager"
)

var (
	minioResourceOnce      sync.Once
	singletonMinioResource *MinioResource
)

// MinioResource 按逻辑桶管理MinIO客户端。客户端按需创建并缓存，
// 未被使用的桶不会建立连接。
type MinioResource struct {
	mu      sync.Mutex
	clients map[vo.StorageBucket]*minio.Client
}

// DefaultMinioResource 获取MinIO资源单例
func DefaultMinioResource() *MinioResource {
	assert.NotCircular()
	minioResourceOnce.Do(func() {
		singletonMinioResource = &MinioResource{
			clients: make(map[vo.StorageBucket]*minio.Client),
		}
	})
	assert.NotNil(singletonMinioResource)
	return singletonMinioResource
}

// MustOpen 校验逻辑桶配置。连接本身惰性建立。
func (r *MinioResource) MustOpen() {
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before MinioResource")
	}

	for _, bucket := range []vo.StorageBucket{vo.BucketMedia, vo.BucketArchive} {
		bc, err := r.bucketConfig(bucket)
		if err != nil {
			panic(err.Error())
		}
		if bc.Endpoint == "" || bc.BucketName == "" {
			logger.Warn("storage bucket not fully configured, deferring", map[string]interface{}{
				"bucket": bucket.String(),
			})
		}
	}
}

// Client 获取指定逻辑桶的客户端，按需创建并缓存
func (r *MinioResource) Client(bucket vo.StorageBucket) (*minio.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cli, ok := r.clients[bucket]; ok {
		return cli, nil
	}

	bc, err := r.bucketConfig(bucket)
	if err != nil {
		return nil, err
	}
	if bc.Endpoint == "" || bc.AccessKeyID == "" || bc.SecretAccessKey == "" {
		return nil, fmt.Errorf("storage bucket %q is missing endpoint or credentials", bucket.String())
	}

	cli, err := minio.New(bc.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(bc.AccessKeyID, bc.SecretAccessKey, ""),
		Secure: bc.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for bucket %q: %w", bucket.String(), err)
	}

	r.clients[bucket] = cli
	logger.Info("MinIO client initialized", map[string]interface{}{
		"bucket":   bucket.String(),
		"endpoint": bc.Endpoint,
	})
	return cli, nil
}

// BucketConfig 获取指定逻辑桶的接入配置
func (r *MinioResource) BucketConfig(bucket vo.StorageBucket) (*config.BucketConfig, error) {
	return r.bucketConfig(bucket)
}

func (r *MinioResource) bucketConfig(bucket vo.StorageBucket) (*config.BucketConfig, error) {
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		return nil, fmt.Errorf("global config not initialized")
	}
	switch bucket {
	case vo.BucketMedia:
		return &cfg.Storage.Media, nil
	case vo.BucketArchive:
		return &cfg.Storage.Archive, nil
	default:
		return nil, fmt.Errorf("unknown storage bucket %q", bucket.String())
	}
}

// Close 释放缓存的客户端引用
func (r *MinioResource) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	// minio客户端无需显式关闭，清空缓存即可
	r.clients = make(map[vo.StorageBucket]*minio.Client)
}

// MinioResourcePlugin MinIO资源插件
type MinioResourcePlugin struct{}

func (p *MinioResourcePlugin) Name() string {
	return "minioResource"
}

func (p *MinioResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultMinioResource()
}
