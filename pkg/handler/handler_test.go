package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedepot/filedepot/pkg/filestore"
	"github.com/filedepot/filedepot/pkg/httpwire"
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

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	dir := t.TempDir()
	store, err := filestore.Open(
		filepath.Join(dir, "files"),
		filepath.Join(dir, "metadata.json"),
		"currentId", "data",
		zerolog.Nop(),
	)
	require.NoError(t, err)

	h := NewHandler(store, Config{
		Version:    "HTTP/1.1",
		ServerName: "filedepot",
		Logger:     zerolog.Nop(),
	})
	return NewRouter(h, testTemplates)
}

func newRequest(t *testing.T, raw string) *httpwire.Request {
	t.Helper()
	req, err := httpwire.ParseRequest(bufio.NewReader(strings.NewReader(raw)), "HTTP/1.1")
	require.NoError(t, err)
	return req
}

func uploadRequest(t *testing.T, name, content string) *httpwire.Request {
	t.Helper()
	return newRequest(t, fmt.Sprintf(
		"POST /files/upload HTTP/1.1\r\n"+
			"Content-Disposition: attachment; filename=\"%s\"\r\n"+
			"Content-Type: application/octet-stream\r\n"+
			"Content-Length: %d\r\n"+
			"Accept: */*\r\n"+
			"Connection: close\r\n"+
			"\r\n%s",
		name, len(content), content))
}

func simpleRequest(t *testing.T, line string) *httpwire.Request {
	t.Helper()
	return newRequest(t, line+" HTTP/1.1\r\nAccept: */*\r\nConnection: close\r\n\r\n")
}

func TestFileLifecycle(t *testing.T) {
	a := assert.New(t)
	router := newTestRouter(t)

	// Upload assigns the first id.
	resp := router.Dispatch(uploadRequest(t, "a.txt", "HELLO"))
	a.Equal(201, resp.Status)
	a.Equal(TypeJSON, resp.ContentType)
	a.Contains(string(resp.Body), `"status": 201`)
	a.Contains(string(resp.Body), "File saved on the server")
	a.Contains(string(resp.Body), "'a.txt' was given a unique identifier #1")

	// Download by name returns the raw bytes as an attachment.
	resp = router.Dispatch(simpleRequest(t, "GET /files/name/a.txt?action=download"))
	a.Equal(200, resp.Status)
	a.Equal(TypeOctetStream, resp.ContentType)
	a.Equal("HELLO", string(resp.Body))
	a.Equal(`attachment; filename="a.txt"`, resp.Header.Value(httpwire.HeaderContentDisposition))

	// View by id returns a single-element metadata list.
	resp = router.Dispatch(simpleRequest(t, "GET /files/id/1?action=view"))
	a.Equal(200, resp.Status)
	var entries []filestore.Entry
	require.NoError(t, json.Unmarshal(resp.Body, &entries))
	require.Len(t, entries, 1)
	a.EqualValues(1, entries[0].ID)
	a.Equal("a.txt", entries[0].Name)
	a.Equal("<TXT>", entries[0].Type)

	// Rename by id keeps the type tag.
	resp = router.Dispatch(simpleRequest(t, "PUT /files/id/1?action=update-name&value=b.txt"))
	a.Equal(200, resp.Status)
	a.Contains(string(resp.Body), "File updated successfully")
	a.Contains(string(resp.Body), "File #1 has a new name: b.txt")

	// Override replaces the contents.
	resp = router.Dispatch(newRequest(t,
		"PUT /files/name/b.txt?action=override HTTP/1.1\r\n"+
			"Content-Type: application/octet-stream\r\n"+
			"Content-Length: 3\r\n"+
			"Accept: */*\r\n"+
			"Connection: close\r\n"+
			"\r\nxyz"))
	a.Equal(200, resp.Status)

	resp = router.Dispatch(simpleRequest(t, "GET /files/id/1?action=download"))
	a.Equal(200, resp.Status)
	a.Equal("xyz", string(resp.Body))

	// Delete removes the file; a later download reports 404.
	resp = router.Dispatch(simpleRequest(t, "DELETE /files/id/1"))
	a.Equal(200, resp.Status)
	a.Contains(string(resp.Body), "The file was deleted successfully from the server.")

	resp = router.Dispatch(simpleRequest(t, "GET /files/id/1?action=download"))
	a.Equal(404, resp.Status)
}

func TestViewByQuery(t *testing.T) {
	a := assert.New(t)
	router := newTestRouter(t)

	router.Dispatch(uploadRequest(t, "notes.txt", "one"))
	router.Dispatch(uploadRequest(t, "report.pdf", "two"))
	router.Dispatch(uploadRequest(t, "more-notes.md", "three"))

	resp := router.Dispatch(simpleRequest(t, "GET /files/query/notes?action=view"))
	a.Equal(200, resp.Status)
	var entries []filestore.Entry
	require.NoError(t, json.Unmarshal(resp.Body, &entries))
	require.Len(t, entries, 2)
	a.Equal("notes.txt", entries[0].Name)
	a.Equal("more-notes.md", entries[1].Name)

	resp = router.Dispatch(simpleRequest(t, "GET /files/query/all?action=view"))
	require.NoError(t, json.Unmarshal(resp.Body, &entries))
	a.Len(entries, 3)

	resp = router.Dispatch(simpleRequest(t, "GET /files/query/zzz?action=view"))
	a.Equal(200, resp.Status)
	require.NoError(t, json.Unmarshal(resp.Body, &entries))
	a.Empty(entries)
}

func TestRouterErrors(t *testing.T) {
	a := assert.New(t)
	router := newTestRouter(t)

	// A method without registered templates is not allowed.
	limited := NewRouter(router.Handler(), map[string][]string{"GET": testTemplates["GET"]})
	resp := limited.Dispatch(simpleRequest(t, "DELETE /files/id/1"))
	a.Equal(405, resp.Status)

	// A URL matching no template is unknown.
	resp = router.Dispatch(simpleRequest(t, "GET /files/nope?action=download"))
	a.Equal(404, resp.Status)
	a.Contains(string(resp.Body), `"reason"`)

	// An action placeholder lets unknown actions through to the 400 check.
	open := NewRouter(router.Handler(), map[string][]string{
		"GET": {"/name/{name}?action={action}"},
	})
	resp = open.Dispatch(simpleRequest(t, "GET /files/name/a.txt?action=zip"))
	a.Equal(400, resp.Status)

	// A non-numeric id does not identify a file.
	resp = router.Dispatch(simpleRequest(t, "GET /files/id/abc?action=view"))
	a.Equal(404, resp.Status)
}

func TestUploadErrors(t *testing.T) {
	a := assert.New(t)
	router := newTestRouter(t)

	// Missing Content-Disposition.
	resp := router.Dispatch(newRequest(t,
		"POST /files/upload HTTP/1.1\r\n"+
			"Content-Type: application/octet-stream\r\n"+
			"Content-Length: 5\r\n"+
			"Connection: close\r\n"+
			"\r\nHELLO"))
	a.Equal(400, resp.Status)

	// Missing Content-Length.
	resp = router.Dispatch(newRequest(t,
		"POST /files/upload HTTP/1.1\r\n"+
			"Content-Disposition: attachment; filename=\"a.txt\"\r\n"+
			"Connection: close\r\n"+
			"\r\n"))
	a.Equal(411, resp.Status)

	// Declared but empty body.
	resp = router.Dispatch(newRequest(t,
		"POST /files/upload HTTP/1.1\r\n"+
			"Content-Disposition: attachment; filename=\"a.txt\"\r\n"+
			"Content-Length: 0\r\n"+
			"Connection: close\r\n"+
			"\r\n"))
	a.Equal(400, resp.Status)

	// Unsupported request media type.
	resp = router.Dispatch(newRequest(t,
		"POST /files/upload HTTP/1.1\r\n"+
			"Content-Disposition: attachment; filename=\"a.txt\"\r\n"+
			"Content-Type: text/html\r\n"+
			"Content-Length: 5\r\n"+
			"Connection: close\r\n"+
			"\r\nHELLO"))
	a.Equal(415, resp.Status)

	// Names that would leave the managed directory.
	for _, name := range []string{"../escape.txt", "a/b.txt", `..\escape.txt`, ".."} {
		resp = router.Dispatch(uploadRequest(t, name, "HELLO"))
		a.Equal(400, resp.Status)
		a.Contains(string(resp.Body), "path separators")
	}

	// Duplicate name leaves the catalog untouched.
	resp = router.Dispatch(uploadRequest(t, "a.txt", "one"))
	a.Equal(201, resp.Status)
	resp = router.Dispatch(uploadRequest(t, "a.txt", "two"))
	a.Equal(400, resp.Status)
	a.Contains(string(resp.Body), "already exists")
}

func TestRenameErrors(t *testing.T) {
	a := assert.New(t)
	router := newTestRouter(t)

	router.Dispatch(uploadRequest(t, "a.txt", "one"))
	router.Dispatch(uploadRequest(t, "b.txt", "two"))

	// The new name must keep the extension.
	resp := router.Dispatch(simpleRequest(t, "PUT /files/name/a.txt?action=update-name&value=a.bin"))
	a.Equal(400, resp.Status)

	// The target name must be free on disk.
	resp = router.Dispatch(simpleRequest(t, "PUT /files/name/a.txt?action=update-name&value=b.txt"))
	a.Equal(400, resp.Status)

	// The new name must be present.
	resp = router.Dispatch(simpleRequest(t, "PUT /files/name/a.txt?action=update-name&value="))
	a.Equal(400, resp.Status)

	// The new name must stay inside the managed directory.
	resp = router.Dispatch(simpleRequest(t, "PUT /files/name/a.txt?action=update-name&value=../a.txt"))
	a.Equal(400, resp.Status)
	a.Contains(string(resp.Body), "path separators")

	// By-name rename reports the new name only.
	resp = router.Dispatch(simpleRequest(t, "PUT /files/name/a.txt?action=update-name&value=c.txt"))
	a.Equal(200, resp.Status)
	a.Contains(string(resp.Body), "New file name: c.txt")
}

func TestErrorEnvelopeIsAlwaysJSON(t *testing.T) {
	a := assert.New(t)
	router := newTestRouter(t)

	resp := router.Dispatch(newRequest(t,
		"GET /files/id/9?action=view HTTP/1.1\r\n"+
			"Accept: text/plain\r\n"+
			"Connection: close\r\n"+
			"\r\n"))
	a.Equal(404, resp.Status)
	a.Equal(TypeJSON, resp.ContentType)

	var envelope struct {
		Status int    `json:"status"`
		Error  string `json:"error"`
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &envelope))
	a.Equal(404, envelope.Status)
	a.Equal("Requested resource not found.", envelope.Reason)
	a.NotEmpty(envelope.Error)
}

func TestCheckRequestType(t *testing.T) {
	a := assert.New(t)

	withType := func(contentType string) *httpwire.Request {
		req := &httpwire.Request{Header: httpwire.NewHeader()}
		if contentType != "" {
			req.Header.Set(httpwire.HeaderContentType, contentType)
		}
		return req
	}

	a.NoError(checkRequestType(withType("text/html"), requestAny))
	a.NoError(checkRequestType(withType(""), binaryTypes))
	a.NoError(checkRequestType(withType("image/png"), binaryTypes))
	a.ErrorIs(checkRequestType(withType("text/html"), binaryTypes), ErrUnsupportedMedia)
}

func TestSelectResponseType(t *testing.T) {
	a := assert.New(t)

	withAccept := func(accept string) *httpwire.Request {
		req := &httpwire.Request{Header: httpwire.NewHeader()}
		if accept != "" {
			req.Header.Set(httpwire.HeaderAccept, accept)
		}
		return req
	}

	// Missing Accept and the wildcard both select the first offer.
	chosen, err := selectResponseType(withAccept(""), messageOffers)
	require.NoError(t, err)
	a.Equal(TypeJSON, chosen)

	chosen, err = selectResponseType(withAccept("*/*"), messageOffers)
	require.NoError(t, err)
	a.Equal(TypeJSON, chosen)

	// Offer order wins over Accept order.
	chosen, err = selectResponseType(withAccept("text/plain, application/json"), messageOffers)
	require.NoError(t, err)
	a.Equal(TypeJSON, chosen)

	chosen, err = selectResponseType(withAccept("text/plain"), messageOffers)
	require.NoError(t, err)
	a.Equal(TypeText, chosen)

	_, err = selectResponseType(withAccept("text/html"), viewOffers)
	a.ErrorIs(err, ErrNotAcceptable)
}

func TestTextRendering(t *testing.T) {
	a := assert.New(t)

	body := renderMessage(Message{Status: 201, Message: "File saved on the server", Info: "detail"}, TypeText)
	a.Equal("status: 201\nmessage: File saved on the server\ninfo: detail", string(body))

	body = renderMessage(Message{Status: 200, Message: "done"}, TypeText)
	a.Equal("status: 200\nmessage: done", string(body))

	a.Nil(renderMessage(Message{Status: 200, Message: "done"}, TypeNone))
}
