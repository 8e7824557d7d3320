// Package logging redacts credentials from log output.
//
// Scripts are logged verbatim, and shell script bindings often carry
// passwords or tokens on their command line
// (script:"/opt/export.sh --password=..."). The filtering writer wraps the
// log file so such values never reach disk.
package logging

import (
	"io"
	"regexp"
	"strings"
)

// RedactedValue replaces sensitive data.
const RedactedValue = "[REDACTED]"

// sensitivePatterns match credentials in free text. Each pattern keeps the
// key in group 1 so only the value is replaced.
//
//nolint:gochecknoglobals // Compiled once and reused
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(--?(?:password|passwd|pwd|token|secret|api[_-]?key)[= ])[^\s"',]+`),
	regexp.MustCompile(`(?i)((?:password|passwd|pwd|secret|token|api[_-]?key)\s*[:=]\s*)[^\s"',]+`),
	regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9._~+/=-]{8,}`),
	regexp.MustCompile(`(://[^/:@\s]+:)[^@/\s]+(@)`),
}

// sensitiveKeys are metadata or parameter names whose values are always redacted.
//
//nolint:gochecknoglobals // Read-only lookup table
var sensitiveKeys = []string{"password", "passwd", "secret", "token", "apikey", "api_key", "credential"}

// FilterSensitiveValue replaces credentials in s with RedactedValue.
func FilterSensitiveValue(s string) string {
	for i, pattern := range sensitivePatterns {
		if i == len(sensitivePatterns)-1 {
			s = pattern.ReplaceAllString(s, "${1}"+RedactedValue+"${2}")
			continue
		}
		s = pattern.ReplaceAllString(s, "${1}"+RedactedValue)
	}
	return s
}

// ContainsSensitiveData reports whether s contains anything FilterSensitiveValue would redact.
func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// IsSensitiveKey reports whether a metadata key or parameter name holds a secret.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// SafeValue returns value with secrets removed; values of sensitive keys are
// redacted entirely.
func SafeValue(key, value string) string {
	if IsSensitiveKey(key) {
		return RedactedValue
	}
	return FilterSensitiveValue(value)
}

// FilteringWriter redacts credentials from everything written through it.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter wraps w.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write filters p and writes the result. It reports len(p) on success so
// callers never see a short write caused by redaction.
func (fw *FilteringWriter) Write(p []byte) (int, error) {
	if _, err := fw.w.Write([]byte(FilterSensitiveValue(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
