package store

import (
	"bytes"
	"encoding/json"
)

// decodeObjects recovers JSON objects from a store file that may be a clean
// JSON array, a JSON-lines file, or a degraded legacy file of concatenated
// objects with no separators. The fallback order is: whole-file array parse,
// brace-matching object extraction, line-by-line parse. Objects that fail to
// parse are skipped, never fatal.
func decodeObjects(data []byte) []json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err == nil {
			return arr
		}
	}

	if objs := matchBraces(trimmed); len(objs) > 0 {
		return objs
	}

	var objs []json.RawMessage
	for _, line := range bytes.Split(trimmed, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] != '{' || line[len(line)-1] != '}' {
			continue
		}
		if json.Valid(line) {
			objs = append(objs, json.RawMessage(append([]byte(nil), line...)))
		}
	}
	return objs
}

// matchBraces scans for balanced top-level {...} spans, respecting string
// literals and escapes, and returns the ones that are valid JSON.
func matchBraces(data []byte) []json.RawMessage {
	var objs []json.RawMessage
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, b := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue // stray closer, skip
			}
			depth--
			if depth == 0 && start >= 0 {
				candidate := data[start : i+1]
				if json.Valid(candidate) {
					objs = append(objs, json.RawMessage(append([]byte(nil), candidate...)))
				}
				start = -1
			}
		}
	}
	return objs
}
