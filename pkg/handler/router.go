package handler

import (
	"strings"

	"github.com/filedepot/filedepot/pkg/httpwire"
	"github.com/filedepot/filedepot/pkg/urlmatch"
)

var (
	ErrMethodNotAllowed = httpwire.NewError("ERR_METHOD_NOT_ALLOWED", "the request method has no registered operations", 405)
	ErrUnknownEndpoint  = httpwire.NewError("ERR_UNKNOWN_ENDPOINT", "the requested URL does not match any known pattern", 404)
	ErrUnknownAction    = httpwire.NewError("ERR_UNKNOWN_ACTION", "the requested action is not supported", 400)
)

// Actions understood by the router. GET and PUT read theirs from the
// "action" query parameter, POST from the first path segment; DELETE has a
// fixed action.
const (
	ActionUpload   = "upload"
	ActionDownload = "download"
	ActionView     = "view"
	ActionOverride = "override"
	ActionRename   = "update-name"
	ActionDelete   = "delete"
)

type operation func(h *Handler, req *httpwire.Request, params map[string]string) (*httpwire.Response, error)

var operations = map[string]operation{
	ActionUpload:   (*Handler).UploadFile,
	ActionDownload: (*Handler).DownloadFile,
	ActionView:     (*Handler).ViewFile,
	ActionOverride: (*Handler).OverrideFile,
	ActionRename:   (*Handler).RenameFile,
	ActionDelete:   (*Handler).DeleteFile,
}

// Router matches request URLs against the frozen template table and invokes
// the selected operation on its Handler.
type Router struct {
	handler *Handler
	// templates maps a request method to its ordered URL templates. The
	// first matching template wins.
	templates map[string][]string
}

func NewRouter(h *Handler, templates map[string][]string) *Router {
	return &Router{
		handler:   h,
		templates: templates,
	}
}

// Handler returns the router's operation handler, mainly for access to its
// metrics.
func (r *Router) Handler() *Handler {
	return r.handler
}

// Dispatch serves one request. It never fails; every error becomes a JSON
// envelope response.
func (r *Router) Dispatch(req *httpwire.Request) *httpwire.Response {
	r.handler.Metrics.incRequestsTotal(req.Method)

	resp, err := r.dispatch(req)
	if err != nil {
		r.handler.Metrics.incErrorsTotal(err)
		r.handler.logger.Info().
			Str("method", req.Method).
			Str("url", req.FullURL).
			Err(err).
			Msg("request failed")
		return r.handler.errorResponse(req, err)
	}
	return resp
}

func (r *Router) dispatch(req *httpwire.Request) (*httpwire.Response, error) {
	templates, ok := r.templates[req.Method]
	if !ok || len(templates) == 0 {
		return nil, ErrMethodNotAllowed
	}

	url := req.Path
	if req.Query != "" {
		url += "?" + req.Query
	}
	var matched string
	for _, template := range templates {
		if urlmatch.Match(template, url) {
			matched = template
			break
		}
	}
	if matched == "" {
		return nil, ErrUnknownEndpoint
	}

	params := urlmatch.Params(matched, url)
	op, ok := operations[actionFor(req, params)]
	if !ok {
		return nil, ErrUnknownAction
	}
	return op(r.handler, req, params)
}

// actionFor derives the action string from the request shape.
func actionFor(req *httpwire.Request, params map[string]string) string {
	switch req.Method {
	case "POST":
		segments := strings.SplitN(strings.TrimPrefix(req.Path, "/"), "/", 2)
		return segments[0]
	case "DELETE":
		return ActionDelete
	default:
		if action, ok := params["action"]; ok {
			return action
		}
		return urlmatch.QueryValues(req.Query)["action"]
	}
}
