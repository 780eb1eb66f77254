package vo

// StorageBucket 逻辑存储桶，决定使用哪套对象存储凭证与Key前缀。
type StorageBucket string

const (
	// BucketMedia 常规媒体库
	BucketMedia StorageBucket = "media"
	// BucketArchive 独立归档库，凭证与公开域名与媒体库隔离。
	BucketArchive StorageBucket = "archive"
)

func (b StorageBucket) IsValid() bool {
	return b == BucketMedia || b == BucketArchive
}

func (b StorageBucket) String() string {
	return string(b)
}

// NewStorageBucketFromString 解析逻辑桶名，空值回落到媒体库。
func NewStorageBucketFromString(s string) (StorageBucket, bool) {
	if s == "" {
		return BucketMedia, true
	}
	b := StorageBucket(s)
	return b, b.IsValid()
}
