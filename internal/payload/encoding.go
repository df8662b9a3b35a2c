package payload

import (
	"encoding/base64"
	"fmt"
	"strings"

	"anjungan-print-agent/internal/models"
)

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n', '\v', '\f':
			return -1
		}
		return r
	}, s)
}

func isHexAlphabet(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// DecodeHex decodes a hex string after stripping whitespace. Odd length or
// a character outside [0-9a-fA-F] is a hard error: once a client signals
// hex, malformed hex must not silently fall through to another encoding.
func DecodeHex(input string) ([]byte, error) {
	s := stripWhitespace(input)
	if s == "" {
		return nil, fmt.Errorf("%w: empty hex string", models.ErrInvalidEncoding)
	}
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: hex string has odd length %d", models.ErrInvalidEncoding, len(s))
	}
	if !isHexAlphabet(s) {
		return nil, fmt.Errorf("%w: hex string contains non-hex characters", models.ErrInvalidEncoding)
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi := hexNibble(s[2*i])
		lo := hexNibble(s[2*i+1])
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// DecodeBase64Tolerant decodes base64 accepting the URL-safe alphabet and
// missing padding. It never errors: input that is not base64 (or decodes to
// zero bytes) reports ok=false so callers can try other interpretations.
func DecodeBase64Tolerant(input string) ([]byte, bool) {
	s := stripWhitespace(input)
	if s == "" {
		return nil, false
	}

	// Normalize URL-safe alphabet and drop existing padding so we can
	// recompute it uniformly.
	s = strings.ReplaceAll(s, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	s = strings.TrimRight(s, "=")

	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '+' || r == '/':
		default:
			return nil, false
		}
	}

	switch len(s) % 4 {
	case 1:
		// No valid base64 has length 1 mod 4.
		return nil, false
	case 2:
		s += "=="
	case 3:
		s += "="
	}

	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(out) == 0 {
		return nil, false
	}
	return out, true
}

// looksLikeHex reports whether a stripped candidate string is plausibly hex
// without treating failure as an error; used only for sniffing unhinted
// string payloads.
func looksLikeHex(s string) bool {
	s = stripWhitespace(s)
	return s != "" && len(s)%2 == 0 && isHexAlphabet(s)
}
