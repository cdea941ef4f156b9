package httpwire

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

var (
	ErrMalformedRequestLine = NewError("ERR_MALFORMED_REQUEST_LINE", "malformed request line; expected '<method> <url> <version>'", 400)
	ErrIncompleteCRLF       = NewError("ERR_INCOMPLETE_CRLF", "malformed header structure: expected CRLF but found incomplete sequence", 400)
	ErrUnsupportedMethod    = NewError("ERR_UNSUPPORTED_METHOD", "request method is not supported by the server", 400)
	ErrVersionMismatch      = NewError("ERR_VERSION_MISMATCH", "HTTP version mismatch", 505)
	ErrNoHeaders            = NewError("ERR_NO_HEADERS", "no headers found or headers are improperly formatted", 400)
	ErrInvalidHeaderLine    = NewError("ERR_INVALID_HEADER", "invalid header format: each header must be in the format 'Key: Value'", 400)
	ErrInvalidContentLength = NewError("ERR_INVALID_CONTENT_LENGTH", "Content-Length header is not a valid number", 400)
)

var supportedMethods = map[string]struct{}{
	"GET":    {},
	"PUT":    {},
	"POST":   {},
	"DELETE": {},
}

const headerSeparator = ": "

// ParseRequest reads exactly one HTTP request off the stream. The version
// argument is the server's configured HTTP version; a request line carrying
// any other version is rejected with a 505 error.
//
// io.EOF is returned untouched when the client closed the connection before
// sending anything, so the session loop can end quietly.
func ParseRequest(br *bufio.Reader, version string) (*Request, error) {
	req := &Request{Header: NewHeader()}

	if err := parseRequestLine(br, req, version); err != nil {
		return nil, err
	}
	if err := parseHeaders(br, req); err != nil {
		return nil, err
	}
	if err := parseBody(br, req); err != nil {
		return nil, err
	}
	return req, nil
}

// readWireLine accumulates bytes until a CRLF pair. A carriage return that is
// not immediately followed by a line feed is a protocol violation.
func readWireLine(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() == 0 {
				return "", io.EOF
			}
			return "", ErrIncompleteCRLF
		}
		if b == '\r' {
			next, err := br.ReadByte()
			if err != nil || next != '\n' {
				return "", ErrIncompleteCRLF
			}
			return sb.String(), nil
		}
		sb.WriteByte(b)
	}
}

func parseRequestLine(br *bufio.Reader, req *Request, version string) error {
	line, err := readWireLine(br)
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return err
	}

	tokens := strings.Split(line, " ")
	if len(tokens) != 3 {
		return ErrMalformedRequestLine
	}

	method := strings.TrimSpace(tokens[0])
	if _, ok := supportedMethods[method]; !ok {
		return NewError(ErrUnsupportedMethod.ErrorCode, "'"+method+"' is not supported by the server", ErrUnsupportedMethod.StatusCode)
	}
	req.Method = method

	req.FullURL = strings.TrimSpace(tokens[1])
	req.splitTarget()

	req.Version = strings.TrimSpace(tokens[2])
	if req.Version != version {
		return ErrVersionMismatch
	}
	return nil
}

func parseHeaders(br *bufio.Reader, req *Request) error {
	for {
		line, err := readWireLine(br)
		if err != nil {
			if err == io.EOF {
				err = ErrIncompleteCRLF
			}
			return err
		}
		if line == "" {
			break
		}
		name, value, found := strings.Cut(line, headerSeparator)
		if !found || name == "" {
			return ErrInvalidHeaderLine
		}
		req.Header.Set(name, value)
	}

	if req.Header.Len() == 0 {
		return ErrNoHeaders
	}
	return nil
}

// parseBody reads the body iff a Content-Length header is present. Exactly
// that many bytes are consumed; anything less is a framing error.
func parseBody(br *bufio.Reader, req *Request) error {
	value, ok := req.Header.Get(HeaderContentLength)
	if !ok {
		return nil
	}
	size, err := strconv.ParseInt(value, 10, 64)
	if err != nil || size < 0 {
		return ErrInvalidContentLength
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(br, body); err != nil {
		return ErrIncompleteCRLF
	}
	req.Body = body
	return nil
}
