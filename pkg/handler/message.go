package handler

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/filedepot/filedepot/pkg/filestore"
	"github.com/filedepot/filedepot/pkg/httpwire"
)

// Message is the success payload returned by the mutating operations.
type Message struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Info    string `json:"info,omitempty"`
}

// errorEnvelope is the body of every error response. It is always sent as
// JSON, whatever the failing handler would normally offer.
type errorEnvelope struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func marshalIndented(v interface{}) []byte {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		// Only fixed shapes reach this marshaller.
		panic(err)
	}
	return raw
}

// renderMessage produces the body bytes for a success message in the chosen
// media type. TypeNone yields no body.
func renderMessage(msg Message, contentType string) []byte {
	switch contentType {
	case TypeJSON:
		return marshalIndented(msg)
	case TypeText:
		var sb strings.Builder
		sb.WriteString("status: ")
		sb.WriteString(strconv.Itoa(msg.Status))
		sb.WriteString("\nmessage: ")
		sb.WriteString(msg.Message)
		if msg.Info != "" {
			sb.WriteString("\ninfo: ")
			sb.WriteString(msg.Info)
		}
		return []byte(sb.String())
	default:
		return nil
	}
}

// renderEntries produces the body for a metadata listing. The list itself is
// the payload, without a status envelope; the plain-text form is the same
// JSON array.
func renderEntries(entries []filestore.Entry, contentType string) []byte {
	if entries == nil {
		entries = []filestore.Entry{}
	}
	switch contentType {
	case TypeJSON, TypeText:
		return marshalIndented(entries)
	default:
		return nil
	}
}

// renderError produces the JSON error envelope for any failure. Errors that
// are not httpwire.Error values are reported as internal faults without
// leaking their message.
func renderError(err error) (int, []byte) {
	status := 500
	message := "unexpected internal error"
	if httpErr, ok := err.(httpwire.Error); ok {
		status = httpErr.StatusCode
		message = httpErr.Message
	}
	body := marshalIndented(errorEnvelope{
		Status: status,
		Error:  message,
		Reason: httpwire.StatusDescription(status),
	})
	return status, body
}
