package status

// HTTPError is an error value carrying a status hint, following the teacher's
// http/status/errors.go: handlers and the codec both return these so the engine
// can pick a canonical response without inspecting error strings.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) HTTPError {
	return HTTPError{Code: code, Message: message}
}

func (h HTTPError) Error() string {
	return h.Message
}

// Error kinds named in the connection engine's error handling design (spec §7). Each maps to
// exactly one canonical status the engine writes when no response bytes are yet on the wire.
var (
	ErrCloseConnection = NewError(0, "actively closing the connection")

	ErrMalformedHead           = NewError(BadRequest, "malformed request head")
	ErrBadChunk                = NewError(BadRequest, "malformed chunked-encoded data")
	ErrHeadTooLarge            = NewError(RequestHeaderFieldsTooLarge, "request head exceeds the configured maximum")
	ErrUnsupportedTransferCode = NewError(NotImplemented, "unsupported transfer coding")
	ErrUnsupportedVersion      = NewError(HTTPVersionNotSupported, "unsupported HTTP version")
	ErrBodyTooLarge            = NewError(RequestEntityTooLarge, "request body is too large")
	ErrBodyTooLargeOnDrain     = NewError(RequestEntityTooLarge, "unread body exceeds the drain cap")
	ErrTooManyPipelined        = NewError(BadRequest, "too many pipelined requests ahead of their responses")
	ErrInternalServerError     = NewError(InternalServerError, "internal server error")
	ErrFramingMismatch         = NewError(InternalServerError, "outbound body length differs from its declared length")
	ErrChannelClosedWithoutEnd = NewError(InternalServerError, "response body channel aborted without a defined end")
)
