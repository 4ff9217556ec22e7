// Package jsonarr parses possibly-truncated JSON arrays returned by LLMs.
// Output-token limits routinely cut responses mid-object; rather than
// discarding the call, the salvager recovers the longest prefix of
// complete objects. Object key order is preserved because it seeds the
// document schema.
package jsonarr

import (
	"encoding/json"
	"strings"
)

// Object is one decoded array element with its key order intact.
type Object struct {
	Keys   []string
	Fields map[string]any
}

// ParseArray extracts the outermost JSON array from text and decodes it.
// A leading Markdown code fence is stripped. If the array is truncated,
// the longest prefix of complete objects is returned; if no object
// completes, the result is an empty, non-nil slice. Text without any
// array start returns nil.
func ParseArray(text string) []Object {
	s := stripFence(text)
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return nil
	}
	body := s[start:]

	if end := matchingClose(body); end >= 0 {
		if objs, ok := parseStrict(body[:end+1]); ok {
			return objs
		}
	}

	// Truncated or malformed tail: cut after the last complete
	// top-level object and close the array ourselves.
	cut := lastCompleteObject(body)
	if cut < 0 {
		return []Object{}
	}
	if objs, ok := parseStrict(body[:cut+1] + "]"); ok {
		return objs
	}
	return []Object{}
}

// stripFence removes a leading ``` or ```json fence line and, when
// present, the closing fence.
func stripFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return text
	}
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	} else {
		return ""
	}
	if j := strings.LastIndex(t, "```"); j >= 0 {
		t = t[:j]
	}
	return t
}

// matchingClose returns the index of the ']' closing the array that
// starts at s[0], or -1 when the array never closes. The scan is
// bracket-aware and respects string literals and escapes.
func matchingClose(s string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// lastCompleteObject returns the index of the last '}' that closes a
// top-level object of the array starting at s[0], or -1.
func lastCompleteObject(s string) int {
	depth := 0
	inString := false
	escaped := false
	last := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if c == '}' && depth == 1 {
				last = i
			}
		}
	}
	return last
}

// parseStrict decodes a complete JSON array preserving object key order.
func parseStrict(s string) ([]Object, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, false
	}

	objs := []Object{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, false
		}
		if obj, ok := v.(Object); ok {
			objs = append(objs, obj)
		}
		// Non-object elements are dropped: a record is an object.
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return nil, false
	}
	return objs, true
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := Object{Fields: make(map[string]any)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := obj.Fields[key]; !dup {
					obj.Keys = append(obj.Keys, key)
				}
				obj.Fields[key] = val
			}
			if _, err := dec.Token(); err != nil { // '}'
				return nil, err
			}
			return obj, nil
		case '[':
			var arr []any
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil { // ']'
				return nil, err
			}
			return arr, nil
		}
		return nil, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String(), nil
		}
		return f, nil
	default:
		return t, nil // string, bool, nil
	}
}
