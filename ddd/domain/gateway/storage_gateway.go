package gateway

import (
	"context"
	"time"

	"media-transcode-service/ddd/domain/vo"
)

// StorageGateway 对象存储网关。所有与远端对象存储的交互都经过这里，
// 其他组件不持有存储凭证。
type StorageGateway interface {
	// SignedDownloadURL 签发限时GET地址
	SignedDownloadURL(ctx context.Context, objectKey string, bucket vo.StorageBucket, ttl time.Duration) (string, error)

	// SignedUploadPartURL 为分片上传签发限时PUT地址（大文件上传端点共用本网关）。
	SignedUploadPartURL(ctx context.Context, objectKey, uploadID string, partNumber int, bucket vo.StorageBucket, ttl time.Duration) (string, error)

	// UploadLocalFile 流式上传本地文件，返回对象的公开访问URL。
	UploadLocalFile(ctx context.Context, localPath, objectKey, contentType string, bucket vo.StorageBucket) (string, error)

	// DownloadToFile 将签名URL指向的对象下载到本地路径
	DownloadToFile(ctx context.Context, signedURL, localPath string) error

	// ExtractKey 从历史上产生过的任意URL形态（带公开域名的绝对地址、
	// 裸相对路径）还原对象Key；无法识别时返回空串。
	ExtractKey(storedURL string, bucket vo.StorageBucket) string

	// PublicURL 由Key推导公开URL，纯计算不走网络。
	PublicURL(objectKey string, bucket vo.StorageBucket) string
}
