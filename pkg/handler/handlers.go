// Package handler turns parsed requests into responses. One Handler owns
// the store and exposes a method per file operation; the Router selects the
// method from the request URL. All expected failures are httpwire.Error
// values and end up as the JSON error envelope.
package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/filedepot/filedepot/pkg/filestore"
	"github.com/filedepot/filedepot/pkg/httpwire"
)

var (
	ErrLengthRequired     = httpwire.NewError("ERR_LENGTH_REQUIRED", "the request did not declare a content length", 411)
	ErrEmptyBody          = httpwire.NewError("ERR_EMPTY_BODY", "the request body must not be empty", 400)
	ErrMissingDisposition = httpwire.NewError("ERR_MISSING_DISPOSITION", "a Content-Disposition header with a file name is required", 400)
	ErrInvalidFilename    = httpwire.NewError("ERR_INVALID_FILENAME", "the file name must not contain path separators", 400)
	ErrInvalidID          = httpwire.NewError("ERR_INVALID_ID", "the file id must be a number", 404)
	ErrMissingTarget      = httpwire.NewError("ERR_MISSING_TARGET", "the URL does not identify a file", 400)
	ErrMissingValue       = httpwire.NewError("ERR_MISSING_VALUE", "the new file name is missing from the request", 400)
	ErrTypeMismatch       = httpwire.NewError("ERR_TYPE_MISMATCH", "the new file name must keep the file type", 400)
)

// messageOffers is the response media offered by the mutating operations.
var messageOffers = []string{TypeJSON, TypeText, TypeNone}

// viewOffers is the response media offered by the metadata listings.
var viewOffers = []string{TypeJSON, TypeText}

// Config holds the immutable settings a Handler needs to build responses.
type Config struct {
	// Version is the HTTP version emitted on every response.
	Version string
	// ServerName is the value of the Server response header.
	ServerName string
	Logger     zerolog.Logger
}

// Handler executes the file operations against its store.
type Handler struct {
	store      *filestore.Store
	version    string
	serverName string
	logger     zerolog.Logger

	// Metrics provides numbers about the requests served. Read the counters
	// atomically.
	Metrics Metrics
}

func NewHandler(store *filestore.Store, config Config) *Handler {
	return &Handler{
		store:      store,
		version:    config.Version,
		serverName: config.ServerName,
		logger:     config.Logger.With().Str("component", "handler").Logger(),
		Metrics:    newMetrics(),
	}
}

// UploadFile stores the request body as a new file. The file name comes from
// the Content-Disposition header; the response reports the assigned id.
func (h *Handler) UploadFile(req *httpwire.Request, params map[string]string) (*httpwire.Response, error) {
	if err := checkRequestType(req, binaryTypes); err != nil {
		return nil, err
	}
	name, err := dispositionFilename(req)
	if err != nil {
		return nil, err
	}
	body, err := requireBody(req)
	if err != nil {
		return nil, err
	}

	id, err := h.store.Add(name, body)
	if err != nil {
		return nil, err
	}
	h.Metrics.incBytesReceived(uint64(len(body)))
	h.Metrics.incFilesCreated()
	h.logger.Info().Str("name", name).Int64("id", id).Msg("file uploaded")

	return h.respondMessage(req, Message{
		Status:  201,
		Message: "File saved on the server",
		Info:    fmt.Sprintf("'%s' was given a unique identifier #%d", name, id),
	})
}

// DownloadFile returns the raw contents of the identified file as an
// attachment.
func (h *Handler) DownloadFile(req *httpwire.Request, params map[string]string) (*httpwire.Response, error) {
	id, err := identifierFrom(params)
	if err != nil {
		return nil, err
	}

	name := id.Name
	if id.Numeric {
		entry, err := h.store.View(id)
		if err != nil {
			return nil, err
		}
		name = entry.Name
	}
	data, err := h.store.Get(id)
	if err != nil {
		return nil, err
	}
	contentType, err := selectResponseType(req, binaryTypes)
	if err != nil {
		return nil, err
	}
	h.Metrics.incBytesSent(uint64(len(data)))

	resp := h.newResponse(req, 200)
	resp.Header.Set(httpwire.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	resp.ContentType = contentType
	resp.Body = data
	return resp, nil
}

// ViewFile returns catalog metadata: a single-element list for a name or id
// target, the filtered list for a keyword query.
func (h *Handler) ViewFile(req *httpwire.Request, params map[string]string) (*httpwire.Response, error) {
	var entries []filestore.Entry
	if keyword, ok := params["query"]; ok {
		entries = h.store.List(keyword)
	} else {
		id, err := identifierFrom(params)
		if err != nil {
			return nil, err
		}
		entry, err := h.store.View(id)
		if err != nil {
			return nil, err
		}
		entries = []filestore.Entry{entry}
	}

	contentType, err := selectResponseType(req, viewOffers)
	if err != nil {
		return nil, err
	}
	resp := h.newResponse(req, 200)
	resp.ContentType = contentType
	resp.Body = renderEntries(entries, contentType)
	return resp, nil
}

// RenameFile gives the identified file a new name taken from the "value"
// query parameter. The new name must keep the file's type tag.
func (h *Handler) RenameFile(req *httpwire.Request, params map[string]string) (*httpwire.Response, error) {
	id, err := identifierFrom(params)
	if err != nil {
		return nil, err
	}
	newName, ok := params["value"]
	if !ok || newName == "" {
		return nil, ErrMissingValue
	}
	if newName == "." || newName == ".." || strings.ContainsAny(newName, `/\`) {
		return nil, ErrInvalidFilename
	}

	entry, err := h.store.View(id)
	if err != nil {
		return nil, err
	}
	if filestore.TypeTag(entry.Name) != filestore.TypeTag(newName) {
		return nil, ErrTypeMismatch
	}
	if err := h.store.Rename(id, newName); err != nil {
		return nil, err
	}
	h.Metrics.incFilesRenamed()
	h.logger.Info().Str("from", entry.Name).Str("to", newName).Msg("file renamed")

	info := "New file name: " + newName
	if id.Numeric {
		info = fmt.Sprintf("File #%d has a new name: %s", id.ID, newName)
	}
	return h.respondMessage(req, Message{
		Status:  200,
		Message: "File updated successfully",
		Info:    info,
	})
}

// OverrideFile replaces the contents of the identified file with the request
// body.
func (h *Handler) OverrideFile(req *httpwire.Request, params map[string]string) (*httpwire.Response, error) {
	if err := checkRequestType(req, binaryTypes); err != nil {
		return nil, err
	}
	id, err := identifierFrom(params)
	if err != nil {
		return nil, err
	}
	body, err := requireBody(req)
	if err != nil {
		return nil, err
	}

	if err := h.store.Override(id, body); err != nil {
		return nil, err
	}
	h.Metrics.incBytesReceived(uint64(len(body)))
	h.Metrics.incFilesOverridden()
	h.logger.Info().Str("target", id.String()).Msg("file overridden")

	return h.respondMessage(req, Message{
		Status:  200,
		Message: "File updated successfully",
		Info:    "New contents were written to file " + id.String(),
	})
}

// DeleteFile removes the identified file from the server.
func (h *Handler) DeleteFile(req *httpwire.Request, params map[string]string) (*httpwire.Response, error) {
	id, err := identifierFrom(params)
	if err != nil {
		return nil, err
	}
	if err := h.store.Delete(id); err != nil {
		return nil, err
	}
	h.Metrics.incFilesDeleted()
	h.logger.Info().Str("target", id.String()).Msg("file deleted")

	return h.respondMessage(req, Message{
		Status:  200,
		Message: "The file was deleted successfully from the server.",
	})
}

func (h *Handler) newResponse(req *httpwire.Request, status int) *httpwire.Response {
	resp := httpwire.NewResponse(h.version, h.serverName, status)
	resp.Connection = req.ConnectionState()
	return resp
}

func (h *Handler) respondMessage(req *httpwire.Request, msg Message) (*httpwire.Response, error) {
	contentType, err := selectResponseType(req, messageOffers)
	if err != nil {
		return nil, err
	}
	resp := h.newResponse(req, msg.Status)
	if body := renderMessage(msg, contentType); len(body) > 0 {
		resp.ContentType = contentType
		resp.Body = body
	}
	return resp, nil
}

// errorResponse converts any failure into the JSON envelope response.
func (h *Handler) errorResponse(req *httpwire.Request, err error) *httpwire.Response {
	status, body := renderError(err)
	resp := h.newResponse(req, status)
	resp.ContentType = TypeJSON
	resp.Body = body
	return resp
}

// ErrorResponse builds the envelope response for failures that happen before
// any handler runs, such as parse errors. The connection always closes.
func ErrorResponse(version, serverName string, err error) *httpwire.Response {
	status, body := renderError(err)
	resp := httpwire.NewResponse(version, serverName, status)
	resp.Connection = httpwire.ConnectionClose
	resp.ContentType = TypeJSON
	resp.Body = body
	return resp
}

// identifierFrom builds the store identifier from the matched URL
// placeholders.
func identifierFrom(params map[string]string) (filestore.Identifier, error) {
	if name, ok := params["name"]; ok {
		return filestore.ByName(name), nil
	}
	if raw, ok := params["id"]; ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filestore.Identifier{}, ErrInvalidID
		}
		return filestore.ByID(id), nil
	}
	return filestore.Identifier{}, ErrMissingTarget
}

// dispositionFilename extracts the file name from a Content-Disposition
// header of the form `attachment; filename="<name>"`.
func dispositionFilename(req *httpwire.Request) (string, error) {
	value, ok := req.Header.Get(httpwire.HeaderContentDisposition)
	if !ok {
		return "", ErrMissingDisposition
	}
	_, spec, found := strings.Cut(value, "filename=")
	if !found {
		return "", ErrMissingDisposition
	}
	name := strings.Trim(strings.TrimSpace(spec), `"`)
	if name == "" {
		return "", ErrMissingDisposition
	}
	// The name becomes a path inside the managed directory; it must stay
	// a single path element.
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidFilename
	}
	return name, nil
}

// requireBody enforces the body rules of the write operations: the request
// must declare a Content-Length and the body must not be empty.
func requireBody(req *httpwire.Request) ([]byte, error) {
	if _, ok := req.Header.Get(httpwire.HeaderContentLength); !ok {
		return nil, ErrLengthRequired
	}
	if len(req.Body) == 0 {
		return nil, ErrEmptyBody
	}
	return req.Body, nil
}
