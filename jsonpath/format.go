// Package jsonpath renders a path-segment list as a JSONPath expression
// or an RFC 6901 JSON Pointer, with the escaping rules of both
// specifications. It has no notion of a chunk.Record to avoid an
// import cycle; chunk.Record.Path/Pointer call through to it.
package jsonpath

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
)

// Segment mirrors chunk.Segment without importing it. Kept identical
// in shape so conversions at the call site are a straight field copy.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

const cacheSize = 4096

// pathCache and pointerCache memoize rendered strings for repeated
// segment slices (e.g. many sibling fragments sharing a long prefix
// inside a deeply nested object). Rendering itself stays pure; the
// cache is purely an internal performance detail.
var (
	pathCache, _    = lru.New(cacheSize)
	pointerCache, _ = lru.New(cacheSize)
)

// ToJSONPath renders segments as a JSONPath expression rooted at "$".
func ToJSONPath(segments []Segment) string {
	if len(segments) == 0 {
		return "$"
	}
	key := cacheKey(segments)
	if v, ok := pathCache.Get(key); ok {
		return v.(string)
	}
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range segments {
		if seg.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
			continue
		}
		if isSimpleIdentifier(seg.Key) {
			b.WriteByte('.')
			b.WriteString(seg.Key)
		} else {
			b.WriteString("['")
			b.WriteString(escapeJSONPathKey(seg.Key))
			b.WriteString("']")
		}
	}
	rendered := b.String()
	pathCache.Add(key, rendered)
	return rendered
}

// ToJSONPointer renders segments as an RFC 6901 JSON Pointer.
func ToJSONPointer(segments []Segment) string {
	if len(segments) == 0 {
		return "/"
	}
	key := cacheKey(segments)
	if v, ok := pointerCache.Get(key); ok {
		return v.(string)
	}
	var b strings.Builder
	for _, seg := range segments {
		b.WriteByte('/')
		if seg.IsIndex {
			b.WriteString(strconv.Itoa(seg.Index))
		} else {
			b.WriteString(escapeJSONPointerToken(seg.Key))
		}
	}
	rendered := b.String()
	pointerCache.Add(key, rendered)
	return rendered
}

// isSimpleIdentifier reports whether key can be rendered as ".key"
// rather than "['key']": it must match [A-Za-z_][A-Za-z0-9_]* and
// contain none of the JSONPath metacharacters.
func isSimpleIdentifier(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r == '_':
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// escapeJSONPathKey escapes a key for use inside ['...']: backslash
// and single quote are escaped, everything else (including '"', '/',
// and control characters) is emitted verbatim.
func escapeJSONPathKey(key string) string {
	if !strings.ContainsAny(key, `\'`) {
		return key
	}
	var b strings.Builder
	b.Grow(len(key) + 4)
	for _, r := range key {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeJSONPointerToken applies RFC 6901 escaping: '~' becomes "~0"
// first, then '/' becomes "~1". The order matters — escaping '/'
// first would turn a literal "~/" into "~01" instead of "~0~1".
func escapeJSONPointerToken(token string) string {
	if !strings.ContainsAny(token, "~/") {
		return token
	}
	token = strings.ReplaceAll(token, "~", "~0")
	token = strings.ReplaceAll(token, "/", "~1")
	return token
}

// cacheKey builds a collision-safe string key for a segment slice.
// Index and Key segments are distinguished with a type tag so that,
// e.g., an index 1 and a key "1" never collide.
func cacheKey(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.IsIndex {
			b.WriteByte('i')
			b.WriteString(strconv.Itoa(seg.Index))
		} else {
			b.WriteByte('k')
			b.WriteString(strconv.Itoa(len(seg.Key)))
			b.WriteByte(':')
			b.WriteString(seg.Key)
		}
		b.WriteByte('\x00')
	}
	return b.String()
}
