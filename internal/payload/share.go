package payload

import (
	"strings"

	"anjungan-print-agent/internal/models"
)

// Aliases under which clients send the printer target, oldest convention
// first. Same rule as payload fields: first populated alias wins.
var shareFields = []string{"printerShare", "printer", "share", "shareName", "sharePath"}

// DefaultShareHost is the host bare share names are qualified against. The
// agent always runs on the machine that shares the printer.
const DefaultShareHost = "127.0.0.1"

// ResolveShare finds the printer target in the body and normalizes it to a
// UNC path. A value that already starts with `\\` passes through unchanged;
// a bare name is treated as a local share and qualified against host.
// Absence is ErrMissingTarget: the resolver never invents a target.
func ResolveShare(body Body, host string) (string, error) {
	name, err := ResolveTarget(body)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(name, `\\`) {
		return name, nil
	}
	if host == "" {
		host = DefaultShareHost
	}
	return `\\` + host + `\` + name, nil
}

// ResolveTarget returns the raw target name without UNC qualification, for
// operations that submit to a named printer instead of a share.
func ResolveTarget(body Body) (string, error) {
	for _, f := range shareFields {
		if s, ok := body[f].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed, nil
			}
		}
	}
	return "", models.ErrMissingTarget
}
