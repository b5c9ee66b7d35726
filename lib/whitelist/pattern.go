// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package whitelist

import (
	"fmt"
	"path"
	"strings"
)

// MatchPattern reports whether a URL path matches a whitelist pattern.
// Both must be absolute ("/..."); the leading slash is removed before
// matching and segments are compared as follows:
//
//   - Exact: "/health" matches only "/health"
//   - "*" matches within one segment: "/api/*/status" matches "/api/orders/status"
//   - "?" matches one non-slash character
//   - "**" matches any number of segments, including none, as the
//     last element ("/public/**"), the first ("/**/favicon.ico"), or
//     one interior element ("/api/**/docs")
//
// Character classes and backslash escapes are not part of the syntax.
// Returns false for patterns that use them, for other malformed
// patterns, and for request paths that are not in clean form.
func MatchPattern(pattern, requestPath string) bool {
	if !strings.HasPrefix(pattern, "/") || strings.ContainsAny(pattern, reservedCharacters) {
		return false
	}
	if !isClean(requestPath) {
		return false
	}
	return matchRelative(pattern[1:], requestPath[1:])
}

// ValidatePattern returns an error describing why pattern can never be
// used safely, or nil.
func ValidatePattern(pattern string) error {
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("pattern %q must start with /", pattern)
	}
	doubleStars := 0
	for _, segment := range strings.Split(pattern[1:], "/") {
		if !strings.Contains(segment, "**") {
			continue
		}
		if segment != "**" {
			return fmt.Errorf("pattern %q: ** must be a whole path segment", pattern)
		}
		doubleStars++
	}
	if doubleStars > 1 {
		return fmt.Errorf("pattern %q: at most one ** segment is supported", pattern)
	}
	if index := strings.IndexAny(pattern, reservedCharacters); index >= 0 {
		return fmt.Errorf("pattern %q: %q is not supported", pattern, pattern[index])
	}
	return nil
}

// reservedCharacters are path.Match metacharacters outside the whitelist
// syntax.
const reservedCharacters = `[]\`

// isClean reports whether requestPath is absolute and already in the
// form path.Clean produces, allowing one trailing slash.
func isClean(requestPath string) bool {
	if !strings.HasPrefix(requestPath, "/") || strings.Contains(requestPath, "//") {
		return false
	}
	cleaned := path.Clean(requestPath)
	return cleaned == requestPath || cleaned+"/" == requestPath
}

// matchRelative matches slash-separated names without a leading slash.
func matchRelative(pattern, name string) bool {
	if pattern == "**" {
		return true
	}

	if !strings.Contains(pattern, "**") {
		return matchGlob(pattern, name)
	}

	// "prefix/**": the prefix alone, or the prefix plus more segments.
	if strings.HasSuffix(pattern, "/**") {
		prefix := pattern[:len(pattern)-3]
		return matchGlob(prefix, name) || hasMatchingPrefix(prefix, name)
	}

	// "**/suffix": the suffix alone, or more segments plus the suffix.
	if strings.HasPrefix(pattern, "**/") {
		suffix := pattern[3:]
		return matchGlob(suffix, name) || hasMatchingSuffix(suffix, name)
	}

	separatorIndex := strings.Index(pattern, "/**/")
	if separatorIndex < 0 {
		return false
	}
	prefix := pattern[:separatorIndex]
	suffix := pattern[separatorIndex+4:]

	if matchGlob(prefix+"/"+suffix, name) {
		return true
	}

	prefixDepth := strings.Count(prefix, "/") + 1
	suffixDepth := strings.Count(suffix, "/") + 1
	segments := strings.Split(name, "/")
	if len(segments) < prefixDepth+1+suffixDepth {
		return false
	}
	if !matchGlob(prefix, strings.Join(segments[:prefixDepth], "/")) {
		return false
	}
	if !matchGlob(suffix, strings.Join(segments[len(segments)-suffixDepth:], "/")) {
		return false
	}
	for _, segment := range segments[prefixDepth : len(segments)-suffixDepth] {
		if segment == "" {
			return false
		}
	}
	return true
}

// matchGlob is path.Match with malformed patterns treated as no match.
func matchGlob(pattern, name string) bool {
	matched, err := path.Match(pattern, name)
	return err == nil && matched
}

// hasMatchingPrefix reports whether the leading segments of name match
// pattern with at least one segment left over.
func hasMatchingPrefix(pattern, name string) bool {
	depth := strings.Count(pattern, "/") + 1
	segments := strings.SplitN(name, "/", depth+1)
	if len(segments) <= depth {
		return false
	}
	return matchGlob(pattern, strings.Join(segments[:depth], "/"))
}

// hasMatchingSuffix reports whether the trailing segments of name match
// pattern with at least one segment before them.
func hasMatchingSuffix(pattern, name string) bool {
	depth := strings.Count(pattern, "/") + 1
	segments := strings.Split(name, "/")
	if len(segments) <= depth {
		return false
	}
	return matchGlob(pattern, strings.Join(segments[len(segments)-depth:], "/"))
}
