package urlmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		template string
		url      string
		want     bool
	}{
		{"/{id}", "/12", true},
		{"/{id}", "/abc", true},
		{"/upload", "/upload", true},
		{"/upload", "/Upload", false},
		{"/{id}", "/12/extra", false},
		{"/id/{id}", "/id/12", true},
		{"/name/{name}", "/name/report.txt", true},
		{"/name/{name}", "/id/12", false},
		{"/", "/", true},
		{"/{id}", "/", false},

		// Query structure must agree on both sides.
		{"/id/{id}?action={action}", "/id/3?action=view", true},
		{"/id/{id}?action=download", "/id/3?action=download", true},
		{"/id/{id}?action=download", "/id/3?action=view", false},
		{"/id/{id}?action={action}", "/id/3", false},
		{"/id/{id}", "/id/3?action=view", false},
		{"/name/{name}?action=update-name&value={value}",
			"/name/a.txt?action=update-name&value=b.txt", true},
		{"/name/{name}?action=update-name&value={value}",
			"/name/a.txt?action=update-name", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Match(tc.template, tc.url),
			"template %q url %q", tc.template, tc.url)
	}
}

func TestParams(t *testing.T) {
	a := assert.New(t)

	a.Equal(map[string]string{"id": "12"}, Params("/id/{id}", "/id/12"))
	a.Equal(
		map[string]string{"name": "a.txt", "value": "b.txt"},
		Params("/name/{name}?action=update-name&value={value}",
			"/name/a.txt?action=update-name&value=b.txt"),
	)
	a.Equal(
		map[string]string{"id": "7", "action": "view"},
		Params("/id/{id}?action={action}", "/id/7?action=view"),
	)
	a.Empty(Params("/upload", "/upload"))
}

func TestQueryValues(t *testing.T) {
	a := assert.New(t)

	a.Equal(map[string]string{"action": "download"}, QueryValues("action=download"))
	a.Equal(
		map[string]string{"action": "update-name", "value": "b.txt"},
		QueryValues("action=update-name&value=b.txt"),
	)
	a.Equal(map[string]string{"flag": ""}, QueryValues("flag"))
	a.Empty(QueryValues(""))
}
