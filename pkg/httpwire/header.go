package httpwire

// Header holds HTTP header fields in insertion order. Lookups are
// case-sensitive, matching the exact field names sent on the wire. Setting a
// name twice keeps the original position and overwrites the value, so the
// last occurrence wins.
type Header struct {
	names  []string
	values map[string]string
}

func NewHeader() *Header {
	return &Header{
		values: make(map[string]string),
	}
}

// Set stores a header field, preserving first-seen order.
func (h *Header) Set(name, value string) {
	if _, ok := h.values[name]; !ok {
		h.names = append(h.names, name)
	}
	h.values[name] = value
}

// Get returns the value for name and whether the field is present.
func (h *Header) Get(name string) (string, bool) {
	value, ok := h.values[name]
	return value, ok
}

// Value returns the value for name, or the empty string if absent.
func (h *Header) Value(name string) string {
	return h.values[name]
}

func (h *Header) Len() int {
	return len(h.names)
}

// Each calls fn for every field in insertion order.
func (h *Header) Each(fn func(name, value string)) {
	for _, name := range h.names {
		fn(name, h.values[name])
	}
}
