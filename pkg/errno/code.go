package errno

// code=0 请求成功
// code=4xx 客户端请求错误
// code=5xx 服务器端错误
// code=2xxxx 业务处理错误码

type Errno struct {
	Code    int
	Message string
}

// Error 实现error接口
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrUnauthorized = &Errno{Code: 401, Message: "Unauthorized"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrDatabase       = &Errno{Code: 501, Message: "Database error"}
	ErrUnknown        = &Errno{Code: 510, Message: "Unknown error"}

	// 业务错误码
	ErrVideoUUIDRequired    = &Errno{Code: 20001, Message: "Video UUID is required"}
	ErrVideoNotFound        = &Errno{Code: 20002, Message: "Video record not found"}
	ErrTranscodeNotNeeded   = &Errno{Code: 20003, Message: "Video does not need transcoding"}
	ErrAlreadyProcessing    = &Errno{Code: 20004, Message: "Video is already being processed"}
	ErrQueueFull            = &Errno{Code: 20005, Message: "Transcode queue is full"}
	ErrInlineDisabled       = &Errno{Code: 20006, Message: "Inline transcoding is disabled"}
	ErrStorageConfig        = &Errno{Code: 20007, Message: "Object storage is not configured for bucket"}
	ErrKeyResolution        = &Errno{Code: 20008, Message: "Cannot resolve storage key from URL"}
	ErrTranscodeFailed      = &Errno{Code: 20009, Message: "Transcode execution failed"}
	ErrInvalidVideoStatus   = &Errno{Code: 20010, Message: "Invalid video status"}
	ErrStorageBucketUnknown = &Errno{Code: 20011, Message: "Unknown storage bucket"}
)
