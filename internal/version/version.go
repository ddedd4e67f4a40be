// Package version parses and orders the loosely formatted version strings
// found in release tags.
//
// A well-formed version is N(.N)* optionally followed by -<label> and then
// optionally by +<hex>, e.g. "1.2.3", "1.2.3.4", "1.2.3-rc.1" or
// "3.2.0+abcd1234". The build suffix never takes part in ordering.
package version

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidVersion is the sentinel wrapped by every InvalidVersionError.
var ErrInvalidVersion = errors.New("invalid version")

// InvalidVersionError reports a version string that does not follow the
// N(.N)*[-label][+hex] grammar.
type InvalidVersionError struct {
	Value  string
	Reason string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Value, e.Reason)
}

func (e *InvalidVersionError) Unwrap() error {
	return ErrInvalidVersion
}

// Version is the decomposition of a raw version string. Segments hold the
// decimal digits of each number without leading zeros, so numbers of any
// length are kept exactly.
type Version struct {
	Segments   []string
	Prerelease string
	Build      string
	Raw        string
}

// Parse splits raw into its numeric segments, pre-release label and build
// suffix. No tag normalisation is applied; use NormalizeTag first for
// remote tags.
func Parse(raw string) (Version, error) {
	out := Version{Raw: raw}

	s := raw
	if i := strings.LastIndexByte(s, '+'); i >= 0 && isHex(s[i+1:]) {
		out.Build = s[i+1:]
		s = s[:i]
	}

	core, label, hasLabel := strings.Cut(s, "-")
	if core == "" {
		return Version{}, &InvalidVersionError{raw, "missing numeric core"}
	}

	parts := strings.Split(core, ".")
	out.Segments = make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || !isDigits(part) {
			return Version{}, &InvalidVersionError{raw, fmt.Sprintf("segment %q is not numeric", part)}
		}
		out.Segments = append(out.Segments, trimZeros(part))
	}

	if hasLabel {
		if strings.Trim(label, "-") == "" {
			return Version{}, &InvalidVersionError{raw, "empty pre-release label"}
		}
		if strings.IndexFunc(label, unicode.IsSpace) >= 0 {
			return Version{}, &InvalidVersionError{raw, "whitespace in pre-release label"}
		}
		out.Prerelease = label
	}

	return out, nil
}

// Valid reports whether raw parses.
func Valid(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

// Core returns the dot-joined numeric segments.
func (v Version) Core() string {
	return strings.Join(v.Segments, ".")
}

// IsPrerelease reports whether v carries a pre-release label.
func (v Version) IsPrerelease() bool {
	return v.Prerelease != ""
}

func (v Version) String() string {
	s := v.Core()
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// NormalizeTag strips a single leading "v" or "V" from a release tag.
func NormalizeTag(tag string) string {
	if tag != "" && (tag[0] == 'v' || tag[0] == 'V') {
		return tag[1:]
	}
	return tag
}

// StripBuild removes a trailing +<hex> build suffix. Anything else after a
// "+" is left alone.
func StripBuild(s string) string {
	if i := strings.LastIndexByte(s, '+'); i >= 0 && isHex(s[i+1:]) {
		return s[:i]
	}
	return s
}

// HasBuild reports whether s ends in a +<hex> build suffix.
func HasBuild(s string) bool {
	return StripBuild(s) != s
}

// trimZeros drops leading zeros from a digit string, keeping at least one digit.
func trimZeros(digits string) string {
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// compareDigits orders two digit strings without leading zeros by numeric value.
func compareDigits(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
