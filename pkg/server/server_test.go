package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedepot/filedepot/pkg/filestore"
	"github.com/filedepot/filedepot/pkg/handler"
)

var testTemplates = map[string][]string{
	"GET": {
		"/name/{name}?action=download",
		"/id/{id}?action=download",
		"/name/{name}?action=view",
		"/id/{id}?action=view",
		"/query/{query}?action=view",
	},
	"POST": {"/upload"},
	"PUT": {
		"/name/{name}?action=override",
		"/id/{id}?action=override",
		"/name/{name}?action=update-name&value={value}",
		"/id/{id}?action=update-name&value={value}",
	},
	"DELETE": {"/name/{name}", "/id/{id}"},
}

type testDeployment struct {
	server   *Server
	store    *filestore.Store
	filesDir string
	metaPath string
}

func deploy(t *testing.T) *testDeployment {
	t.Helper()
	dir := t.TempDir()
	filesDir := filepath.Join(dir, "files")
	metaPath := filepath.Join(dir, "metadata.json")

	store, err := filestore.Open(filesDir, metaPath, "currentId", "data", zerolog.Nop())
	require.NoError(t, err)

	h := handler.NewHandler(store, handler.Config{
		Version:    "HTTP/1.1",
		ServerName: "filedepot",
		Logger:     zerolog.Nop(),
	})
	srv := New(Config{
		Host:           "127.0.0.1",
		Port:           0,
		Version:        "HTTP/1.1",
		ServerName:     "filedepot",
		NetworkTimeout: 5 * time.Second,
		Logger:         zerolog.Nop(),
	}, map[string]Endpoint{
		"/files": {
			Router: handler.NewRouter(h, testTemplates),
			Close:  store.Flush,
		},
	})
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		if srv.Running() {
			srv.Shutdown()
		}
	})
	return &testDeployment{server: srv, store: store, filesDir: filesDir, metaPath: metaPath}
}

type response struct {
	StatusLine string
	Headers    map[string]string
	Body       string
}

func readResponse(t *testing.T, br *bufio.Reader) response {
	t.Helper()
	statusLine, err := br.ReadString('\n')
	require.NoError(t, err)

	headers := make(map[string]string)
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, found := strings.Cut(line, ": ")
		require.True(t, found, "header line %q", line)
		headers[name] = value
	}

	var body string
	if raw, ok := headers["Content-Length"]; ok {
		size, err := strconv.Atoi(raw)
		require.NoError(t, err)
		buf := make([]byte, size)
		_, err = io.ReadFull(br, buf)
		require.NoError(t, err)
		body = string(buf)
	}
	return response{
		StatusLine: strings.TrimRight(statusLine, "\r\n"),
		Headers:    headers,
		Body:       body,
	}
}

// roundTrip sends one raw request on a fresh connection and reads the
// response.
func roundTrip(t *testing.T, addr, raw string) response {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)
	return readResponse(t, bufio.NewReader(conn))
}

func uploadRaw(name, content string) string {
	return fmt.Sprintf(
		"POST /files/upload HTTP/1.1\r\n"+
			"Content-Disposition: attachment; filename=\"%s\"\r\n"+
			"Content-Type: application/octet-stream\r\n"+
			"Content-Length: %d\r\n"+
			"Accept: */*\r\n"+
			"Connection: close\r\n"+
			"\r\n%s",
		name, len(content), content)
}

func simpleRaw(line string) string {
	return line + " HTTP/1.1\r\nAccept: */*\r\nConnection: close\r\n\r\n"
}

func TestEndToEndLifecycle(t *testing.T) {
	a := assert.New(t)
	d := deploy(t)
	addr := d.server.Addr()

	resp := roundTrip(t, addr, uploadRaw("a.txt", "HELLO"))
	a.Equal("HTTP/1.1 201 Created", resp.StatusLine)
	a.Equal("filedepot", resp.Headers["Server"])
	a.Contains(resp.Body, `"status": 201`)
	a.Contains(resp.Body, "File saved on the server")
	a.Contains(resp.Body, "'a.txt' was given a unique identifier #1")

	resp = roundTrip(t, addr, simpleRaw("GET /files/name/a.txt?action=download"))
	a.Equal("HTTP/1.1 200 OK", resp.StatusLine)
	a.Equal("application/octet-stream", resp.Headers["Content-Type"])
	a.Equal("5", resp.Headers["Content-Length"])
	a.Equal("HELLO", resp.Body)

	resp = roundTrip(t, addr, simpleRaw("GET /files/id/1?action=view"))
	a.Equal("HTTP/1.1 200 OK", resp.StatusLine)
	a.Contains(resp.Body, `"fileId": 1`)
	a.Contains(resp.Body, `"fileName": "a.txt"`)

	resp = roundTrip(t, addr, simpleRaw("PUT /files/id/1?action=update-name&value=b.txt"))
	a.Equal("HTTP/1.1 200 OK", resp.StatusLine)
	a.Contains(resp.Body, "File updated successfully")

	resp = roundTrip(t, addr,
		"PUT /files/name/b.txt?action=override HTTP/1.1\r\n"+
			"Content-Type: application/octet-stream\r\n"+
			"Content-Length: 3\r\n"+
			"Accept: */*\r\n"+
			"Connection: close\r\n"+
			"\r\nxyz")
	a.Equal("HTTP/1.1 200 OK", resp.StatusLine)

	resp = roundTrip(t, addr, simpleRaw("GET /files/id/1?action=download"))
	a.Equal("HTTP/1.1 200 OK", resp.StatusLine)
	a.Equal("xyz", resp.Body)

	entry, err := d.store.View(filestore.ByID(1))
	require.NoError(t, err)
	a.Equal("0 kb (3 bytes)", entry.Size)

	resp = roundTrip(t, addr, simpleRaw("DELETE /files/id/1"))
	a.Equal("HTTP/1.1 200 OK", resp.StatusLine)
	a.Contains(resp.Body, "The file was deleted successfully from the server.")

	resp = roundTrip(t, addr, simpleRaw("GET /files/id/1?action=download"))
	a.Equal("HTTP/1.1 404 Not Found", resp.StatusLine)
}

func TestKeepAliveServesSequentialRequests(t *testing.T) {
	a := assert.New(t)
	d := deploy(t)

	conn, err := net.Dial("tcp", d.server.Addr())
	require.NoError(t, err)
	defer conn.Close()
	br := bufio.NewReader(conn)

	first := "POST /files/upload HTTP/1.1\r\n" +
		"Content-Disposition: attachment; filename=\"a.txt\"\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"Content-Length: 5\r\n" +
		"Accept: */*\r\n" +
		"Connection: keep-alive\r\n" +
		"\r\nHELLO"
	_, err = conn.Write([]byte(first))
	require.NoError(t, err)
	resp := readResponse(t, br)
	a.Equal("HTTP/1.1 201 Created", resp.StatusLine)
	a.Equal("keep-alive", resp.Headers["Connection"])

	second := "GET /files/name/a.txt?action=download HTTP/1.1\r\n" +
		"Accept: */*\r\n" +
		"Connection: close\r\n" +
		"\r\n"
	_, err = conn.Write([]byte(second))
	require.NoError(t, err)
	resp = readResponse(t, br)
	a.Equal("HTTP/1.1 200 OK", resp.StatusLine)
	a.Equal("close", resp.Headers["Connection"])
	a.Equal("HELLO", resp.Body)

	// The server closes the connection after a close response.
	_, err = br.ReadByte()
	a.Equal(io.EOF, err)
}

func TestParseErrorGetsEnvelope(t *testing.T) {
	a := assert.New(t)
	d := deploy(t)

	resp := roundTrip(t, d.server.Addr(), "NONSENSE\r\nHost: x\r\n\r\n")
	a.Equal("HTTP/1.1 400 Bad Request", resp.StatusLine)
	a.Contains(resp.Body, `"reason": "Request failed."`)
}

func TestVersionMismatch(t *testing.T) {
	d := deploy(t)
	resp := roundTrip(t, d.server.Addr(), "GET /files/id/1?action=view HTTP/1.0\r\nHost: x\r\n\r\n")
	assert.Equal(t, "HTTP/1.1 505 HTTP Version Not Supported", resp.StatusLine)
}

func TestUnknownRootEndpoint(t *testing.T) {
	d := deploy(t)
	resp := roundTrip(t, d.server.Addr(), simpleRaw("GET /other/id/1?action=view"))
	assert.Equal(t, "HTTP/1.1 404 Not Found", resp.StatusLine)
}

func TestShutdownFlushesCatalog(t *testing.T) {
	a := assert.New(t)
	d := deploy(t)

	resp := roundTrip(t, d.server.Addr(), uploadRaw("a.txt", "HELLO"))
	require.Equal(t, "HTTP/1.1 201 Created", resp.StatusLine)

	require.NoError(t, d.server.Shutdown())
	a.False(d.server.Running())

	reloaded, err := filestore.Open(d.filesDir, d.metaPath, "currentId", "data", zerolog.Nop())
	require.NoError(t, err)
	a.EqualValues(1, reloaded.CurrentID())
	entry, err := reloaded.View(filestore.ByName("a.txt"))
	require.NoError(t, err)
	a.EqualValues(1, entry.ID)
}

func TestRestart(t *testing.T) {
	a := assert.New(t)
	d := deploy(t)

	require.NoError(t, d.server.Restart())
	a.True(d.server.Running())

	resp := roundTrip(t, d.server.Addr(), uploadRaw("a.txt", "HELLO"))
	a.Equal("HTTP/1.1 201 Created", resp.StatusLine)

	// Starting twice is refused.
	a.ErrorIs(d.server.Start(), ErrAlreadyRunning)
	require.NoError(t, d.server.Shutdown())
	a.ErrorIs(d.server.Shutdown(), ErrNotRunning)
}
