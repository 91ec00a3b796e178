package model

import (
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

// DID wraps an AT Protocol decentralized identifier. Parsing is
// best-effort: a malformed DID never fails event construction (only
// malformed times do, per the event model's parsing rules), so Raw
// always holds the original string even when Parsed is the zero value.
type DID struct {
	Raw    string
	Parsed syntax.DID
	Valid  bool
}

// ParseDID builds a DID, falling back to the raw string when s doesn't
// parse as a well-formed did: URI.
func ParseDID(s string) DID {
	d := DID{Raw: s}
	if parsed, err := syntax.ParseDID(s); err == nil {
		d.Parsed = parsed
		d.Valid = true
	}
	return d
}

func (d DID) String() string { return d.Raw }

// NSID wraps an AT Protocol namespaced record type identifier, with the
// same lenient fallback as DID.
type NSID struct {
	Raw    string
	Parsed syntax.NSID
	Valid  bool
}

// ParseNSID builds an NSID, falling back to the raw string when s
// doesn't parse as a well-formed NSID.
func ParseNSID(s string) NSID {
	n := NSID{Raw: s}
	if parsed, err := syntax.ParseNSID(s); err == nil {
		n.Parsed = parsed
		n.Valid = true
	}
	return n
}

func (n NSID) String() string { return n.Raw }

// ParseTime parses an ISO-8601 timestamp. Per the event model's parsing
// rules, a malformed time fails the whole event parse — callers treat a
// non-nil error here as a decode error (logged and the frame dropped),
// not a partial event.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// AsString extracts a string field from a decoded payload map, returning
// ("", false) when absent or not a string. Parsing from raw payload maps
// is total: missing or mistyped optional fields degrade to zero values
// rather than failing the event.
func AsString(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// AsInt64 extracts an integer field, accepting any of the numeric
// representations a JSON or CBOR decoder might produce.
func AsInt64(m map[string]any, key string) (int64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

// AsBool extracts a bool field, defaulting to false when absent or
// mistyped.
func AsBool(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// AsMap extracts a nested object field as an opaque map, matching the
// event model's refusal to decode application-level record schemas.
func AsMap(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	nested, ok := v.(map[string]any)
	return nested, ok
}
