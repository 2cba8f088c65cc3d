package cekunit

import (
	"net/http"
	"sort"
	"strings"
)

// ParseSetCookie reads the name and value of one Set-Cookie header value.
// Attributes after the first ';' are ignored. A pair without '=' yields an
// empty value; ok is false when the name is empty.
func ParseSetCookie(line string) (name, value string, ok bool) {
	pair, _, _ := strings.Cut(line, ";")
	name, value, _ = strings.Cut(pair, "=")
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" {
		return "", "", false
	}
	return name, value, true
}

type cookiePair struct {
	name  string
	value string
}

// setCookiePairs returns the cookies of all Set-Cookie headers in order of
// first appearance, with later values overwriting earlier ones.
func setCookiePairs(h http.Header) []cookiePair {
	var pairs []cookiePair
	index := make(map[string]int)
	for _, line := range h.Values("Set-Cookie") {
		name, value, ok := ParseSetCookie(line)
		if !ok {
			continue
		}
		if i, seen := index[name]; seen {
			pairs[i].value = value
			continue
		}
		index[name] = len(pairs)
		pairs = append(pairs, cookiePair{name: name, value: value})
	}
	return pairs
}

// ExtractCookies returns the name/value map of all Set-Cookie headers.
// No domain or path scoping is performed.
func ExtractCookies(h http.Header) map[string]string {
	pairs := setCookiePairs(h)
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.name] = p.value
	}
	return m
}

// SerializeCookies joins the pairs as "name=value; name=value", sorted by
// name.
func SerializeCookies(cookies map[string]string) string {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+cookies[name])
	}
	return strings.Join(parts, "; ")
}

// AttachCookies sets the Cookie header, replacing any previous value.
// An empty map leaves the header untouched.
func AttachCookies(h http.Header, cookies map[string]string) http.Header {
	if len(cookies) == 0 {
		return h
	}
	h.Set("Cookie", SerializeCookies(cookies))
	return h
}

// CookieMap converts recorded cookies into a name/value map.
func CookieMap(cookies []Cookie) map[string]string {
	m := make(map[string]string, len(cookies))
	for _, c := range cookies {
		m[c.Name] = c.Value
	}
	return m
}
