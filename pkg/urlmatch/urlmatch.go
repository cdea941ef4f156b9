// Package urlmatch compares concrete URLs against templates whose path
// segments, query keys and query values may be placeholders written in curly
// braces, e.g. "/name/{name}?action={action}". A placeholder matches any
// single concrete token; every other token must match exactly.
package urlmatch

import "strings"

// Match reports whether the concrete URL fits the template. Path and query
// are compared separately: both sides must agree on the presence of a query,
// the path segment counts must be equal, and the query pair counts must be
// equal. Segments, query keys and query values each follow the
// exact-or-placeholder rule.
func Match(template, url string) bool {
	tPath, tQuery, tHas := cutQuery(template)
	uPath, uQuery, uHas := cutQuery(url)
	if tHas != uHas {
		return false
	}
	if !matchTokens(splitPath(tPath), splitPath(uPath)) {
		return false
	}
	if !tHas {
		return true
	}
	return matchQuery(tQuery, uQuery)
}

// Params extracts the placeholder bindings from a URL known to match the
// template. Keys are the placeholder names without braces; both path
// segments and query values contribute bindings.
func Params(template, url string) map[string]string {
	params := make(map[string]string)

	tPath, tQuery, _ := cutQuery(template)
	uPath, uQuery, _ := cutQuery(url)

	ts, us := splitPath(tPath), splitPath(uPath)
	for i, seg := range ts {
		if i >= len(us) {
			break
		}
		bind(params, seg, us[i])
	}

	tPairs, uPairs := splitQuery(tQuery), splitQuery(uQuery)
	for i, pair := range tPairs {
		if i >= len(uPairs) {
			break
		}
		tKey, tValue, _ := strings.Cut(pair, "=")
		uKey, uValue, _ := strings.Cut(uPairs[i], "=")
		bind(params, tKey, uKey)
		bind(params, tValue, uValue)
	}
	return params
}

// QueryValues parses a raw query string of the form "a=b&c=d" into a map.
// Pairs without an "=" are kept with an empty value. No unescaping is done;
// values travel as they appeared on the wire.
func QueryValues(query string) map[string]string {
	values := make(map[string]string)
	if query == "" {
		return values
	}
	for _, pair := range splitQuery(query) {
		name, value, _ := strings.Cut(pair, "=")
		values[name] = value
	}
	return values
}

func matchTokens(ts, us []string) bool {
	if len(ts) != len(us) {
		return false
	}
	for i, token := range ts {
		if isPlaceholder(token) {
			continue
		}
		if token != us[i] {
			return false
		}
	}
	return true
}

func matchQuery(tQuery, uQuery string) bool {
	tPairs, uPairs := splitQuery(tQuery), splitQuery(uQuery)
	if len(tPairs) != len(uPairs) {
		return false
	}
	for i, pair := range tPairs {
		tKey, tValue, _ := strings.Cut(pair, "=")
		uKey, uValue, _ := strings.Cut(uPairs[i], "=")
		if !matchToken(tKey, uKey) || !matchToken(tValue, uValue) {
			return false
		}
	}
	return true
}

func matchToken(t, u string) bool {
	return isPlaceholder(t) || t == u
}

func bind(params map[string]string, token, value string) {
	if isPlaceholder(token) {
		params[token[1:len(token)-1]] = value
	}
}

func isPlaceholder(token string) bool {
	return len(token) >= 2 && token[0] == '{' && token[len(token)-1] == '}'
}

func cutQuery(url string) (path, query string, has bool) {
	return strings.Cut(url, "?")
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func splitQuery(query string) []string {
	if query == "" {
		return nil
	}
	var pairs []string
	for _, pair := range strings.Split(query, "&") {
		if pair != "" {
			pairs = append(pairs, pair)
		}
	}
	return pairs
}
