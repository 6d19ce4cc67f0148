package player

import "fmt"

// ErrorCode classifies a playback failure. The set mirrors what the stream
// pipeline can actually report: network trouble, a bad origin response, or
// a decode problem.
type ErrorCode int

const (
	CodeUnspecified ErrorCode = iota
	CodeNetworkConnectionFailed
	CodeNetworkConnectionTimeout
	CodeBadHTTPStatus
	CodeNotFound
	CodeInvalidContentType
	CodeDecodingFailed
	CodeDecodingFormatUnsupported
)

func (c ErrorCode) Name() string {
	switch c {
	case CodeNetworkConnectionFailed:
		return "ERROR_NETWORK_CONNECTION_FAILED"
	case CodeNetworkConnectionTimeout:
		return "ERROR_NETWORK_CONNECTION_TIMEOUT"
	case CodeBadHTTPStatus:
		return "ERROR_BAD_HTTP_STATUS"
	case CodeNotFound:
		return "ERROR_NOT_FOUND"
	case CodeInvalidContentType:
		return "ERROR_INVALID_CONTENT_TYPE"
	case CodeDecodingFailed:
		return "ERROR_DECODING_FAILED"
	case CodeDecodingFormatUnsupported:
		return "ERROR_DECODING_FORMAT_UNSUPPORTED"
	default:
		return "ERROR_UNSPECIFIED"
	}
}

type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code.Name(), e.Message)
}

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
