package httpwire

// Error represents an expected failure with the intent to be reported to the
// client. It carries a stable error code, a human-readable message and the
// HTTP status code the response should use.
type Error struct {
	ErrorCode  string
	Message    string
	StatusCode int
}

func (e Error) Error() string {
	return e.ErrorCode + ": " + e.Message
}

func (e1 Error) Is(target error) bool {
	e2, ok := target.(Error)
	return ok && e1.ErrorCode == e2.ErrorCode
}

// NewError constructs a new Error with the given error code, message and
// HTTP status code.
func NewError(errCode string, message string, statusCode int) Error {
	return Error{
		ErrorCode:  errCode,
		Message:    message,
		StatusCode: statusCode,
	}
}

var statusReasons = map[int]string{
	200: "OK",
	201: "Created",
	400: "Bad Request",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	411: "Length Required",
	415: "Unsupported Media Type",
	500: "Internal Server Error",
	505: "HTTP Version Not Supported",
}

var statusDescriptions = map[int]string{
	200: "Request successful.",
	201: "A new resource was created.",
	400: "Request failed.",
	404: "Requested resource not found.",
	405: "Request method error.",
	406: "Requested media type not supported.",
	411: "File size not established.",
	415: "Media type not supported.",
	500: "Server failed to handle request.",
	505: "Server and client HTTP version mismatch.",
}

// StatusReason returns the reason phrase for a status code, e.g. "OK" for 200.
func StatusReason(code int) string {
	if reason, ok := statusReasons[code]; ok {
		return reason
	}
	return "Internal Server Error"
}

// StatusDescription returns the short description used in error envelopes.
func StatusDescription(code int) string {
	if desc, ok := statusDescriptions[code]; ok {
		return desc
	}
	return statusDescriptions[500]
}
