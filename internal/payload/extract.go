package payload

import (
	"fmt"
	"sort"
	"strings"

	"anjungan-print-agent/internal/models"
)

// Body is a parsed JSON request body. No schema is enforced; clients from
// several generations of the kiosk frontend use different field names for
// the same thing, and the extractor has to accept all of them.
type Body map[string]any

// Field priority lists. Order matters: the first populated field wins, so
// the same body always resolves to the same payload.
var (
	byteArrayFields = []string{"rawBytes", "raw", "data", "payload", "bytes", "buffer"}
	hexHintFields   = []string{"rawHex", "hex", "dataHex"}
	base64Hints     = []string{"rawBase64", "dataBase64", "base64", "payloadBase64"}
	stringFields    = []string{"rawBase64", "dataBase64", "raw", "data", "payload", "text", "content"}
)

// Keys that carry request options or routing info, never payload bytes.
// Excluded from the unknown-field fallback scan so that a body with only
// metadata still reports a missing payload instead of printing its own
// printer name.
var metadataKeys = map[string]bool{
	"encoding": true, "newline": true, "copies": true, "preview": true,
	"printerShare": true, "printer": true, "share": true, "shareName": true, "sharePath": true,
	"width": true, "heightPx": true, "height": true,
	"requestId": true, "id": true, "jobId": true, "fileName": true, "filename": true,
}

// Extract resolves an arbitrary request body into exactly one canonical byte
// buffer. Resolution order (first hit wins):
//
//  1. byte-array-like values under the known byte field names
//  2. the explicit hex field, then the hex-hint aliases (fail-fast on bad hex)
//  3. a candidate string from the known aliases, else any unknown string
//     field, else any byte-array-like value anywhere
//  4. candidate interpretation driven by the declared encoding option, the
//     source field name, or base64/hex/utf8 sniffing
//
// It returns ErrMissingPayload when nothing in the body carries bytes, and
// ErrInvalidEncoding only when an explicit encoding signal was violated.
func Extract(body Body) ([]byte, error) {
	if len(body) == 0 {
		return nil, models.ErrMissingPayload
	}

	// 1. Explicit byte arrays need no decoding at all.
	for _, field := range byteArrayFields {
		if b, ok := asByteArray(body[field]); ok {
			return b, nil
		}
	}

	// 2. A populated hex field declares intent: bad hex is an error, not a
	// reason to try the next rule.
	for _, field := range hexHintFields {
		if s, ok := nonEmptyString(body[field]); ok {
			b, err := DecodeHex(s)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", field, err)
			}
			return b, nil
		}
	}

	// 3. Pick the candidate string.
	candidate, sourceField, ok := pickCandidate(body)
	if !ok {
		// Last resort: any byte-array-like value under an unknown key.
		if b, found := scanByteArray(body); found {
			return b, nil
		}
		return nil, models.ErrMissingPayload
	}

	// 4. Interpret it.
	return interpret(candidate, sourceField, declaredEncoding(body))
}

// pickCandidate finds the first non-empty string across the known aliases,
// falling back to the first non-empty non-metadata string field anywhere in
// the body. The fallback scan is key-sorted so the choice is deterministic.
func pickCandidate(body Body) (value, field string, ok bool) {
	for _, f := range stringFields {
		if s, found := nonEmptyString(body[f]); found {
			return s, f, true
		}
	}
	for _, k := range sortedKeys(body) {
		if metadataKeys[k] {
			continue
		}
		if s, found := nonEmptyString(body[k]); found {
			return s, k, true
		}
	}
	return "", "", false
}

func scanByteArray(body Body) ([]byte, bool) {
	for _, k := range sortedKeys(body) {
		if metadataKeys[k] {
			continue
		}
		if b, ok := asByteArray(body[k]); ok {
			return b, true
		}
	}
	return nil, false
}

func interpret(candidate, sourceField, encoding string) ([]byte, error) {
	switch {
	case encoding == "hex" || contains(hexHintFields, sourceField):
		b, err := DecodeHex(candidate)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", sourceField, err)
		}
		return b, nil

	case encoding == "base64" || contains(base64Hints, sourceField):
		b, ok := DecodeBase64Tolerant(candidate)
		if !ok {
			return nil, fmt.Errorf("%w: field %q is not valid base64", models.ErrInvalidEncoding, sourceField)
		}
		return b, nil

	case encoding == "utf8" || encoding == "utf-8" || encoding == "text":
		return []byte(candidate), nil

	case encoding == "binary" || encoding == "latin1":
		return latin1Bytes(candidate), nil
	}

	// No explicit signal: sniff. A string payload is never rejected; the
	// worst case is treating it as literal text.
	if b, ok := DecodeBase64Tolerant(candidate); ok {
		return b, nil
	}
	if looksLikeHex(candidate) {
		if b, err := DecodeHex(candidate); err == nil {
			return b, nil
		}
	}
	return []byte(candidate), nil
}

func declaredEncoding(body Body) string {
	if s, ok := nonEmptyString(body["encoding"]); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return ""
}

// asByteArray accepts a JSON array of integers 0-255 or the serialized form
// of a Node.js Buffer ({"type":"Buffer","data":[...]}) and returns the raw
// bytes.
func asByteArray(v any) ([]byte, bool) {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return nil, false
		}
		out := make([]byte, len(t))
		for i, e := range t {
			n, ok := asByteValue(e)
			if !ok {
				return nil, false
			}
			out[i] = n
		}
		return out, true
	case map[string]any:
		tag, _ := t["type"].(string)
		if !strings.EqualFold(tag, "buffer") {
			return nil, false
		}
		return asByteArray(t["data"])
	case []byte:
		if len(t) == 0 {
			return nil, false
		}
		return t, true
	}
	return nil, false
}

func asByteValue(v any) (byte, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int64(n)) || n < 0 || n > 255 {
			return 0, false
		}
		return byte(n), true
	case int:
		if n < 0 || n > 255 {
			return 0, false
		}
		return byte(n), true
	}
	return 0, false
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func latin1Bytes(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

func sortedKeys(body Body) []string {
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
