package httpwire

import (
	"bytes"
	"strconv"
	"strings"
)

// Standard header field names read and emitted by the server.
const (
	HeaderContentType        = "Content-Type"
	HeaderContentLength      = "Content-Length"
	HeaderContentDisposition = "Content-Disposition"
	HeaderConnection         = "Connection"
	HeaderAccept             = "Accept"
	HeaderServer             = "Server"
	HeaderHost               = "Host"
)

// Connection header values understood by the session loop.
const (
	ConnectionKeepAlive = "keep-alive"
	ConnectionClose     = "close"
)

// Request is a single parsed HTTP request. It is immutable after parsing and
// owned by exactly one session at a time.
type Request struct {
	// Method is one of GET, PUT, POST or DELETE.
	Method string
	// Version is the HTTP version string from the request line.
	Version string
	// FullURL is the raw request target, path and query included.
	FullURL string
	// Root is the first path segment with its leading slash, e.g. "/files".
	Root string
	// Path is everything after the root, leading slash kept. Empty when the
	// URL consists of the root only.
	Path string
	// Query is the raw query string without the leading "?", empty if the
	// URL has none.
	Query string
	// Header holds the request headers in insertion order.
	Header *Header
	// Body is the request body, present iff a Content-Length header was.
	Body []byte
}

// KeepAlive reports whether the client asked for the connection to stay open.
// A missing or unrecognized Connection header counts as close.
func (r *Request) KeepAlive() bool {
	return r.Header.Value(HeaderConnection) == ConnectionKeepAlive
}

// ConnectionState returns the connection intent to mirror into the response.
func (r *Request) ConnectionState() string {
	if r.KeepAlive() {
		return ConnectionKeepAlive
	}
	return ConnectionClose
}

// splitTarget breaks the raw request target into root, remainder and query.
func (r *Request) splitTarget() {
	target := r.FullURL
	if i := strings.IndexByte(target, '?'); i >= 0 {
		r.Query = target[i+1:]
		target = target[:i]
	}
	for i := 1; i < len(target); i++ {
		if target[i] == '/' {
			r.Root = target[:i]
			r.Path = target[i:]
			return
		}
	}
	r.Root = target
}

// Encode serializes the request back into its wire form. Parsing followed by
// encoding reproduces any well-formed request byte for byte.
func (r *Request) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(r.Method)
	buf.WriteByte(' ')
	buf.WriteString(r.FullURL)
	buf.WriteByte(' ')
	buf.WriteString(r.Version)
	buf.WriteString("\r\n")
	r.Header.Each(func(name, value string) {
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	})
	buf.WriteString("\r\n")
	buf.Write(r.Body)
	return buf.Bytes()
}

// ContentLength returns the parsed Content-Length value, or -1 if absent.
func (r *Request) ContentLength() int64 {
	value, ok := r.Header.Get(HeaderContentLength)
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return -1
	}
	return n
}
