package syntax

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	aturiRegex  = regexp.MustCompile(`^at://([a-zA-Z0-9._:%-]+)(/([a-zA-Z0-9-.]+)(/([a-zA-Z0-9_~.:-]{1,512}))?)?$`)
	handleRegex = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)
	nsidRegex   = regexp.MustCompile(`^[a-zA-Z]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+(\.[a-zA-Z]([a-zA-Z]{0,61}[a-zA-Z])?)$`)
)

// String type which represents a syntactically valid AT URI (no query or fragment parts).
//
// Always use [ParseATURI] instead of wrapping strings directly.
type ATURI string

func ParseATURI(raw string) (ATURI, error) {
	if len(raw) > 8192 {
		return "", fmt.Errorf("AT-URI is too long (8192 chars max)")
	}
	parts := aturiRegex.FindStringSubmatch(raw)
	if parts == nil {
		return "", fmt.Errorf("AT-URI syntax didn't validate via regex")
	}
	authority := parts[1]
	if _, err := ParseDID(authority); err != nil && !handleRegex.MatchString(authority) {
		return "", fmt.Errorf("AT-URI authority section neither a DID nor Handle: %s", authority)
	}
	if parts[3] != "" && !nsidRegex.MatchString(parts[3]) {
		return "", fmt.Errorf("AT-URI first path segment not an NSID: %s", parts[3])
	}
	if rkey := parts[5]; rkey == "." || rkey == ".." {
		return "", fmt.Errorf("AT-URI record key can not be '.' or '..'")
	}
	return ATURI(raw), nil
}

func (a ATURI) segment(idx int) string {
	parts := strings.SplitN(strings.TrimPrefix(string(a), "at://"), "/", 3)
	if idx >= len(parts) {
		return ""
	}
	return parts[idx]
}

// Authority section (DID or handle), as a plain string.
func (a ATURI) Authority() string {
	return a.segment(0)
}

// Collection NSID, or empty string if the URI has no path.
func (a ATURI) Collection() string {
	return a.segment(1)
}

// Record key, or empty string if the URI does not point at a record.
func (a ATURI) RecordKey() string {
	return a.segment(2)
}

func (a ATURI) String() string {
	return string(a)
}
