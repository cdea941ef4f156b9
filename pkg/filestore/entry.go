package filestore

import (
	"strconv"
	"strings"
	"time"
)

// TimeFormat is the layout used for the catalog timestamps.
const TimeFormat = "02.01.2006 15:04"

// TypeTagDir marks directory entries in the catalog.
const TypeTagDir = "<DIR>"

// Entry is one catalog record. The JSON field names match the metadata file
// layout and must not change.
type Entry struct {
	ID          int64  `json:"fileId"`
	Name        string `json:"fileName"`
	Type        string `json:"fileType"`
	Size        string `json:"fileSize"`
	TimeCreated string `json:"timeCreated"`
	TimeUpdated string `json:"timeUpdated"`
}

func newEntry(id int64, name string, size int64, now time.Time) *Entry {
	stamp := now.Format(TimeFormat)
	return &Entry{
		ID:          id,
		Name:        name,
		Type:        TypeTag(name),
		Size:        SizeString(size),
		TimeCreated: stamp,
		TimeUpdated: stamp,
	}
}

// TypeTag derives the catalog type tag from a file name: the uppercased
// extension in angle brackets, or "<NULL>" when the name has no extension.
func TypeTag(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return "<NULL>"
	}
	return "<" + strings.ToUpper(name[i+1:]) + ">"
}

// SizeString renders a byte count the way the catalog stores it, with the
// kilobyte part computed by integer division.
func SizeString(size int64) string {
	return strconv.FormatInt(size/1024, 10) + " kb (" + strconv.FormatInt(size, 10) + " bytes)"
}

// Matches reports whether the entry is selected by a keyword query: either
// the file name contains the query, or the query contains the entry's id in
// decimal form.
func (e *Entry) Matches(query string) bool {
	return strings.Contains(e.Name, query) ||
		strings.Contains(query, strconv.FormatInt(e.ID, 10))
}

func (e *Entry) touch(now time.Time) {
	e.TimeUpdated = now.Format(TimeFormat)
}
