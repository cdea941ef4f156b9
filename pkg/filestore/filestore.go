// Package filestore keeps file bytes in a single managed directory and an
// authoritative metadata catalog in memory. The catalog and the directory
// are guarded by one reader-writer lock so that every catalog entry always
// corresponds to exactly one file on disk. Mutations are in memory only
// until Flush writes the metadata file.
package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/filedepot/filedepot/pkg/httpwire"
)

var (
	ErrFileExists   = httpwire.NewError("ERR_FILE_EXISTS", "a file with that name already exists on the server", 400)
	ErrFileNotFound = httpwire.NewError("ERR_FILE_NOT_FOUND", "the requested file does not exist on the server", 404)
	ErrFileRead     = httpwire.NewError("ERR_FILE_READ", "the stored file could not be read", 500)
	ErrFileWrite    = httpwire.NewError("ERR_FILE_WRITE", "the file contents could not be written", 500)
	ErrMetadata     = httpwire.NewError("ERR_METADATA", "the metadata file could not be processed", 500)
)

// ListAll is the sentinel query that selects every catalog entry.
const ListAll = "all"

var (
	defaultFilePerm = os.FileMode(0o644)
	defaultDirPerm  = os.FileMode(0o754)
)

// writeContents is replaced in tests that force the write step to fail.
var writeContents = (*os.File).Write

// Store owns the managed directory and the catalog.
type Store struct {
	dir      string
	metaPath string
	idKey    string
	dataKey  string
	logger   zerolog.Logger

	mu        sync.RWMutex
	currentID atomic.Int64
	entries   map[int64]*Entry
}

// Open prepares a store over the given directory and loads the catalog from
// the metadata file. A missing metadata file starts an empty catalog with
// the id counter at zero. The idKey and dataKey arguments are the top-level
// field names of the metadata file.
func Open(dir, metaPath, idKey, dataKey string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return nil, err
	}
	store := &Store{
		dir:      dir,
		metaPath: metaPath,
		idKey:    idKey,
		dataKey:  dataKey,
		logger:   logger.With().Str("component", "filestore").Logger(),
		entries:  make(map[int64]*Entry),
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (store *Store) load() error {
	raw, err := os.ReadFile(store.metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}

	var currentID int64
	if idRaw, ok := fields[store.idKey]; ok {
		if err := json.Unmarshal(idRaw, &currentID); err != nil {
			return err
		}
	}
	entries := make(map[string]*Entry)
	if dataRaw, ok := fields[store.dataKey]; ok {
		if err := json.Unmarshal(dataRaw, &entries); err != nil {
			return err
		}
	}

	store.currentID.Store(currentID)
	for _, entry := range entries {
		store.entries[entry.ID] = entry
	}
	store.logger.Info().
		Int64("currentId", currentID).
		Int("entries", len(store.entries)).
		Msg("catalog loaded")
	return nil
}

// Add creates a new file with the given contents and returns its assigned
// id. The name must not already exist in the directory. A failed write is
// rolled back by deleting the partially created file.
func (store *Store) Add(name string, data []byte) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	path := filepath.Join(store.dir, name)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, defaultFilePerm)
	if err != nil {
		if os.IsExist(err) {
			return 0, ErrFileExists
		}
		return 0, err
	}

	_, writeErr := writeContents(file, data)
	closeErr := file.Close()
	if writeErr != nil || closeErr != nil {
		if err := os.Remove(path); err != nil {
			store.logger.Warn().
				Str("path", path).
				Err(err).
				Msg("rollback of failed write did not remove the file, manual cleanup required")
		}
		return 0, ErrFileWrite
	}

	id := store.currentID.Add(1)
	store.entries[id] = newEntry(id, name, int64(len(data)), time.Now())
	return id, nil
}

// Get returns the contents of the identified file. A name identifier is used
// as-is against the directory; an id identifier resolves through the
// catalog first.
func (store *Store) Get(id Identifier) ([]byte, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	name, err := store.resolveName(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(store.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, ErrFileRead
	}
	if len(data) == 0 {
		return nil, ErrFileRead
	}
	return data, nil
}

// View returns a copy of the catalog entry for the identified file.
func (store *Store) View(id Identifier) (Entry, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	entry, err := store.resolveEntry(id)
	if err != nil {
		return Entry{}, err
	}
	return *entry, nil
}

// List returns the catalog entries selected by the keyword query, sorted by
// ascending id. The sentinel query "all" selects everything.
func (store *Store) List(query string) []Entry {
	store.mu.RLock()
	defer store.mu.RUnlock()

	var selected []Entry
	for _, entry := range store.entries {
		if query == ListAll || entry.Matches(query) {
			selected = append(selected, *entry)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].ID < selected[j].ID
	})
	return selected
}

// Override replaces the contents of an existing file and refreshes its size
// and update timestamp. The name never changes.
func (store *Store) Override(id Identifier, data []byte) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, err := store.resolveEntry(id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(store.dir, entry.Name), data, defaultFilePerm); err != nil {
		return ErrFileWrite
	}
	entry.Size = SizeString(int64(len(data)))
	entry.touch(time.Now())
	return nil
}

// Rename moves the identified file to newName. The move is refused when a
// file by that name already exists in the directory.
func (store *Store) Rename(id Identifier, newName string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, err := store.resolveEntry(id)
	if err != nil {
		return err
	}
	target := filepath.Join(store.dir, newName)
	if _, err := os.Stat(target); err == nil {
		return ErrFileExists
	}
	if err := os.Rename(filepath.Join(store.dir, entry.Name), target); err != nil {
		return ErrFileWrite
	}
	entry.Name = newName
	entry.touch(time.Now())
	return nil
}

// Delete removes the identified file from disk and from the catalog. The id
// counter keeps its value so ids are never reused.
func (store *Store) Delete(id Identifier) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, err := store.resolveEntry(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(store.dir, entry.Name)); err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotFound
		}
		return ErrFileWrite
	}
	delete(store.entries, entry.ID)
	return nil
}

// Flush writes the id counter and the catalog to the metadata file in one
// atomic replacement. This is the store's only durability point.
func (store *Store) Flush() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	data := make(map[string]*Entry, len(store.entries))
	for id, entry := range store.entries {
		data[strconv.FormatInt(id, 10)] = entry
	}
	document := map[string]interface{}{
		store.idKey:   store.currentID.Load(),
		store.dataKey: data,
	}
	raw, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return ErrMetadata
	}

	tmp := store.metaPath + ".tmp"
	if err := os.WriteFile(tmp, raw, defaultFilePerm); err != nil {
		return ErrMetadata
	}
	if err := os.Rename(tmp, store.metaPath); err != nil {
		return ErrMetadata
	}
	store.logger.Info().
		Int("entries", len(data)).
		Str("path", store.metaPath).
		Msg("catalog flushed")
	return nil
}

// CurrentID returns the value of the id counter.
func (store *Store) CurrentID() int64 {
	return store.currentID.Load()
}

// Count returns the number of live catalog entries.
func (store *Store) Count() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.entries)
}

// resolveEntry finds the catalog entry for an identifier. Callers hold at
// least the read lock.
func (store *Store) resolveEntry(id Identifier) (*Entry, error) {
	if id.Numeric {
		entry, ok := store.entries[id.ID]
		if !ok {
			return nil, ErrFileNotFound
		}
		return entry, nil
	}
	for _, entry := range store.entries {
		if entry.Name == id.Name {
			return entry, nil
		}
	}
	return nil, ErrFileNotFound
}

// resolveName maps an identifier to a file name. Name identifiers pass
// through untouched, so a read may target a file that has no catalog entry.
func (store *Store) resolveName(id Identifier) (string, error) {
	if !id.Numeric {
		return id.Name, nil
	}
	entry, ok := store.entries[id.ID]
	if !ok {
		return "", ErrFileNotFound
	}
	return entry.Name, nil
}
