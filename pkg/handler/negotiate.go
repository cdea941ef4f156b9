package handler

import (
	"strings"

	"github.com/filedepot/filedepot/pkg/httpwire"
)

// Media type markers used across the handlers.
const (
	TypeJSON        = "application/json"
	TypeText        = "text/plain"
	TypeOctetStream = "application/octet-stream"
	// TypeAny marks a handler that accepts any request media type.
	TypeAny = "*/*"
	// TypeNone marks a response without a body.
	TypeNone = "none"
)

// binaryTypes is the media accepted for file payloads and offered for
// downloads. The order matters: the first entry wins on a wildcard Accept.
var binaryTypes = []string{
	TypeOctetStream,
	"image/jpeg",
	"image/png",
	"image/gif",
	"audio/mpeg",
	"video/mp4",
}

var requestAny = []string{TypeAny}

var (
	ErrUnsupportedMedia = httpwire.NewError("ERR_UNSUPPORTED_MEDIA", "the request media type is not supported for this operation", 415)
	ErrNotAcceptable    = httpwire.NewError("ERR_NOT_ACCEPTABLE", "none of the acceptable media types can be produced", 406)
)

// checkRequestType validates the request's Content-Type against the
// handler's accepted set. A missing header always passes; the TypeAny marker
// in the set accepts everything.
func checkRequestType(req *httpwire.Request, accepted []string) error {
	for _, t := range accepted {
		if t == TypeAny {
			return nil
		}
	}
	contentType, ok := req.Header.Get(httpwire.HeaderContentType)
	if !ok {
		return nil
	}
	for _, t := range accepted {
		if t == contentType {
			return nil
		}
	}
	return ErrUnsupportedMedia
}

// selectResponseType picks the response media type from the request's Accept
// header against the handler's ordered offers. A missing Accept header or a
// wildcard selects the first offer. Priority weights in the Accept list are
// not interpreted.
func selectResponseType(req *httpwire.Request, offers []string) (string, error) {
	accept, ok := req.Header.Get(httpwire.HeaderAccept)
	if !ok {
		return offers[0], nil
	}
	acceptable := splitAccept(accept)
	for _, t := range acceptable {
		if t == TypeAny {
			return offers[0], nil
		}
	}
	for _, offer := range offers {
		for _, t := range acceptable {
			if t == offer {
				return offer, nil
			}
		}
	}
	return "", ErrNotAcceptable
}

func splitAccept(accept string) []string {
	parts := strings.Split(accept, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
