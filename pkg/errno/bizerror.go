package errno

import "errors"

// BizError 携带业务错误码与底层原因，便于HTTP层统一渲染。
type BizError struct {
	Errno *Errno
	Cause error
}

func NewBizError(en *Errno, cause error) *BizError {
	if en == nil {
		en = ErrUnknown
	}
	return &BizError{Errno: en, Cause: cause}
}

func (e *BizError) Error() string {
	if e.Cause != nil {
		return e.Errno.Message + ": " + e.Cause.Error()
	}
	return e.Errno.Message
}

func (e *BizError) Unwrap() error {
	return e.Cause
}

// Decode 将任意error解析为错误码与消息。
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}
	var be *BizError
	if errors.As(err, &be) {
		return be.Errno.Code, be.Error()
	}
	var en *Errno
	if errors.As(err, &en) {
		return en.Code, en.Message
	}
	return ErrInternalServer.Code, err.Error()
}
