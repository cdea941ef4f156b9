package handler

import (
	"sync"
	"sync/atomic"

	"github.com/filedepot/filedepot/pkg/httpwire"
)

// Metrics provides numbers about the server's usage. Since these may be
// accessed from multiple goroutines, they must be read and modified
// atomically using the functions of the sync/atomic package, such as
// atomic.LoadUint64. The maps must not be modified to prevent data races.
type Metrics struct {
	// RequestsTotal counts the number of incoming requests per method.
	RequestsTotal map[string]*uint64
	// ErrorsTotal counts the number of returned errors by their message.
	ErrorsTotal     *ErrorsTotalMap
	BytesReceived   *uint64
	BytesSent       *uint64
	FilesCreated    *uint64
	FilesRenamed    *uint64
	FilesOverridden *uint64
	FilesDeleted    *uint64
}

func (m Metrics) incRequestsTotal(method string) {
	if ptr, ok := m.RequestsTotal[method]; ok {
		atomic.AddUint64(ptr, 1)
	}
}

func (m Metrics) incErrorsTotal(err error) {
	ptr := m.ErrorsTotal.retrievePointerFor(err)
	atomic.AddUint64(ptr, 1)
}

func (m Metrics) incBytesReceived(delta uint64) {
	atomic.AddUint64(m.BytesReceived, delta)
}

func (m Metrics) incBytesSent(delta uint64) {
	atomic.AddUint64(m.BytesSent, delta)
}

func (m Metrics) incFilesCreated() {
	atomic.AddUint64(m.FilesCreated, 1)
}

func (m Metrics) incFilesRenamed() {
	atomic.AddUint64(m.FilesRenamed, 1)
}

func (m Metrics) incFilesOverridden() {
	atomic.AddUint64(m.FilesOverridden, 1)
}

func (m Metrics) incFilesDeleted() {
	atomic.AddUint64(m.FilesDeleted, 1)
}

func newMetrics() Metrics {
	return Metrics{
		RequestsTotal: map[string]*uint64{
			"GET":    new(uint64),
			"PUT":    new(uint64),
			"POST":   new(uint64),
			"DELETE": new(uint64),
		},
		ErrorsTotal:     newErrorsTotalMap(),
		BytesReceived:   new(uint64),
		BytesSent:       new(uint64),
		FilesCreated:    new(uint64),
		FilesRenamed:    new(uint64),
		FilesOverridden: new(uint64),
		FilesDeleted:    new(uint64),
	}
}

// ErrorsTotalMap stores the counters for the different request errors.
type ErrorsTotalMap struct {
	sync.RWMutex
	m map[SimpleError]*uint64
}

// SimpleError is the key grouping errors for the counters.
type SimpleError struct {
	Msg  string
	Code int
}

func simplifyError(err error) SimpleError {
	if httpErr, ok := err.(httpwire.Error); ok {
		return SimpleError{Msg: httpErr.Message, Code: httpErr.StatusCode}
	}
	return SimpleError{Msg: err.Error(), Code: 500}
}

func newErrorsTotalMap() *ErrorsTotalMap {
	return &ErrorsTotalMap{
		m: make(map[SimpleError]*uint64, 20),
	}
}

// retrievePointerFor returns (after creating it if necessary) the pointer to
// the counter for the error.
func (e *ErrorsTotalMap) retrievePointerFor(err error) *uint64 {
	serr := simplifyError(err)
	e.RLock()
	ptr, ok := e.m[serr]
	e.RUnlock()
	if ok {
		return ptr
	}

	// Pointer creation requires the write lock; recheck under it.
	e.Lock()
	if ptr, ok = e.m[serr]; !ok {
		ptr = new(uint64)
		e.m[serr] = ptr
	}
	e.Unlock()
	return ptr
}

// Load retrieves a snapshot of the counter pointers.
func (e *ErrorsTotalMap) Load() map[SimpleError]*uint64 {
	e.RLock()
	m := make(map[SimpleError]*uint64, len(e.m))
	for serr, ptr := range e.m {
		m[serr] = ptr
	}
	e.RUnlock()
	return m
}
