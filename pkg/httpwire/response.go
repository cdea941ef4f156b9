package httpwire

import (
	"bytes"
	"io"
	"strconv"
)

// Response is a fully assembled HTTP response ready for serialization.
// Headers are written in insertion order so that what goes over the wire is
// exactly what was set.
type Response struct {
	Version     string
	Status      int
	Header      *Header
	ContentType string
	Connection  string
	Body        []byte
}

// NewResponse prepares a response skeleton with the Server header already
// placed first, matching the order the handlers produce.
func NewResponse(version, server string, status int) *Response {
	h := NewHeader()
	h.Set(HeaderServer, server)
	return &Response{
		Version: version,
		Status:  status,
		Header:  h,
	}
}

// WriteTo serializes the response. The status line carries the canonical
// reason phrase for the code, then the explicit headers in order, then the
// connection, content framing headers and the body.
func (resp *Response) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	buf.WriteString(resp.Version)
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(resp.Status))
	buf.WriteByte(' ')
	buf.WriteString(StatusReason(resp.Status))
	buf.WriteString("\r\n")

	resp.Header.Each(func(name, value string) {
		buf.WriteString(name)
		buf.WriteString(headerSeparator)
		buf.WriteString(value)
		buf.WriteString("\r\n")
	})

	if resp.Connection != "" {
		writeHeaderLine(&buf, HeaderConnection, resp.Connection)
	}
	if resp.ContentType != "" {
		writeHeaderLine(&buf, HeaderContentType, resp.ContentType)
	}
	if len(resp.Body) > 0 {
		writeHeaderLine(&buf, HeaderContentLength, strconv.Itoa(len(resp.Body)))
	}

	buf.WriteString("\r\n")
	buf.Write(resp.Body)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func writeHeaderLine(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(headerSeparator)
	buf.WriteString(value)
	buf.WriteString("\r\n")
}
