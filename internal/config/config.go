// Package config loads the frozen settings record and the URL template
// table. Both are read once at startup; a missing or invalid value prevents
// the server from starting at all.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Settings is the frozen configuration of one server process.
type Settings struct {
	// HTTPVersion is the only version accepted on request lines and emitted
	// on responses.
	HTTPVersion string `toml:"http_version"`
	// ServerName is the value of the Server response header.
	ServerName string `toml:"server_name"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	// FilesDir is the managed directory holding the stored files.
	FilesDir string `toml:"files_dir"`
	// MetadataPath is the JSON file the catalog is flushed to.
	MetadataPath string `toml:"metadata_path"`
	// TemplatesPath is the JSON file holding the URL template table.
	TemplatesPath string `toml:"templates_path"`
	// MetadataIDKey and MetadataDataKey are the top-level field names of the
	// metadata file.
	MetadataIDKey   string `toml:"metadata_id_key"`
	MetadataDataKey string `toml:"metadata_data_key"`
}

// Default returns the settings used when no configuration file is given.
func Default() Settings {
	return Settings{
		HTTPVersion:     "HTTP/1.1",
		ServerName:      "filedepot",
		Host:            "0.0.0.0",
		Port:            8080,
		FilesDir:        "./data/files",
		MetadataPath:    "./data/metadata.json",
		TemplatesPath:   "",
		MetadataIDKey:   "currentId",
		MetadataDataKey: "data",
	}
}

// Load reads the TOML settings file at path. Fields absent from the file
// keep their defaults; the result is validated.
func Load(path string) (Settings, error) {
	settings := Default()
	if _, err := toml.DecodeFile(path, &settings); err != nil {
		return Settings{}, fmt.Errorf("unable to read settings file %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Validate reports the first missing or malformed required value.
func (s Settings) Validate() error {
	switch {
	case s.HTTPVersion == "":
		return fmt.Errorf("setting http_version must not be empty")
	case s.ServerName == "":
		return fmt.Errorf("setting server_name must not be empty")
	case s.Host == "":
		return fmt.Errorf("setting host must not be empty")
	case s.Port < 0 || s.Port > 65535:
		return fmt.Errorf("setting port %d is outside the valid range", s.Port)
	case s.FilesDir == "":
		return fmt.Errorf("setting files_dir must not be empty")
	case s.MetadataPath == "":
		return fmt.Errorf("setting metadata_path must not be empty")
	case s.MetadataIDKey == "":
		return fmt.Errorf("setting metadata_id_key must not be empty")
	case s.MetadataDataKey == "":
		return fmt.Errorf("setting metadata_data_key must not be empty")
	}
	return nil
}

// Templates is the frozen URL template table: endpoint root to method to
// ordered template list.
type Templates map[string]map[string][]string

var knownMethods = map[string]struct{}{
	"GET":    {},
	"PUT":    {},
	"POST":   {},
	"DELETE": {},
}

// DefaultTemplates returns the built-in table for the /files endpoint, used
// when no template file is configured.
func DefaultTemplates() Templates {
	return Templates{
		"/files": {
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
		},
	}
}

// LoadTemplates reads and validates the JSON template table at path. An
// empty path selects the built-in table. Templates may be written with or
// without the endpoint root; both "/files/id/{id}?action=view" and
// "/id/{id}?action=view" under root "/files" select the same requests.
func LoadTemplates(path string) (Templates, error) {
	if path == "" {
		return DefaultTemplates(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read template file %s: %w", path, err)
	}
	var templates Templates
	if err := json.Unmarshal(raw, &templates); err != nil {
		return nil, fmt.Errorf("unable to parse template file %s: %w", path, err)
	}
	if err := templates.validate(); err != nil {
		return nil, fmt.Errorf("template file %s: %w", path, err)
	}
	templates.normalize()
	return templates, nil
}

// normalize rewrites root-inclusive templates into the root-stripped form
// the router matches against. The root itself is stripped before dispatch,
// so a template that repeats it would otherwise never match.
func (t Templates) normalize() {
	for root, methods := range t {
		for method, list := range methods {
			for i, template := range list {
				list[i] = stripRoot(root, template)
			}
			methods[method] = list
		}
	}
}

func stripRoot(root, template string) string {
	switch {
	case template == root:
		return ""
	case strings.HasPrefix(template, root+"/"), strings.HasPrefix(template, root+"?"):
		return strings.TrimPrefix(template, root)
	default:
		return template
	}
}

func (t Templates) validate() error {
	if len(t) == 0 {
		return fmt.Errorf("no endpoint roots defined")
	}
	for root, methods := range t {
		if !strings.HasPrefix(root, "/") || strings.Count(root, "/") != 1 || len(root) < 2 {
			return fmt.Errorf("endpoint root %q must be a single path segment with a leading slash", root)
		}
		if len(methods) == 0 {
			return fmt.Errorf("endpoint root %q has no methods", root)
		}
		for method, list := range methods {
			if _, ok := knownMethods[method]; !ok {
				return fmt.Errorf("endpoint root %q uses unknown method %q", root, method)
			}
			if len(list) == 0 {
				return fmt.Errorf("endpoint root %q method %s has no templates", root, method)
			}
		}
	}
	return nil
}
