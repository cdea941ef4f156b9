// Package logbuf retains every logged event in memory so the admin console
// can replay, filter and save them. A Buffer is attached to the root logger
// as an additional level writer next to the console output.
package logbuf

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Record is one retained log event as the console renders it.
type Record struct {
	Message   string `json:"message"`
	Component string `json:"component,omitempty"`
	TimeStamp string `json:"timeStamp"`
}

type entry struct {
	level  string
	record Record
}

// Buffer collects log events. It implements io.Writer over zerolog's JSON
// output and is safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	entries []entry
}

func New() *Buffer {
	return &Buffer{}
}

// Write parses one zerolog JSON event and retains it. Lines that are not
// JSON events are dropped silently.
func (b *Buffer) Write(p []byte) (int, error) {
	var event map[string]interface{}
	if err := json.Unmarshal(p, &event); err != nil {
		return len(p), nil
	}

	record := Record{
		Message:   stringField(event, zerolog.MessageFieldName),
		Component: stringField(event, "component"),
		TimeStamp: stringField(event, zerolog.TimestampFieldName),
	}
	level := strings.ToUpper(stringField(event, zerolog.LevelFieldName))
	if level == "" {
		level = "INFO"
	}

	b.mu.Lock()
	b.entries = append(b.entries, entry{level: level, record: record})
	b.mu.Unlock()
	return len(p), nil
}

// Render returns the retained events of one level as a JSON array, oldest
// first. An empty level renders every event. When nothing matches, a short
// notice names the level instead.
func (b *Buffer) Render(level string) string {
	level = strings.ToUpper(strings.TrimSpace(level))

	b.mu.Lock()
	var records []Record
	for _, e := range b.entries {
		if level == "" || e.level == level {
			records = append(records, e.record)
		}
	}
	b.mu.Unlock()

	if len(records) == 0 {
		if level == "" {
			level = "ANY"
		}
		return "No '" + level + "' logs registered."
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "No '" + level + "' logs registered."
	}
	return string(raw)
}

// Len returns the number of retained events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Clear drops every retained event.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.entries = nil
	b.mu.Unlock()
}

// Save writes the full buffer rendering to a text file.
func (b *Buffer) Save(path string) error {
	return os.WriteFile(path, []byte(b.Render("")+"\n"), 0o644)
}

func stringField(event map[string]interface{}, name string) string {
	if value, ok := event[name].(string); ok {
		return value
	}
	return ""
}
