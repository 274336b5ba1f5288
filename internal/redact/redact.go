// Package redact strips sensitive material from strings before they
// reach logs or error responses: connection strings, bearer tokens,
// API keys and raw SQL fragments that database errors tend to carry.
package redact

import (
	"regexp"
)

// RedactionPlaceholder replaces any matched sensitive fragment.
const RedactionPlaceholder = "[REDACTED]"

var (
	// Database connection strings with embedded credentials.
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql|db|database|connection)://[^@\s]+@`)

	// Credentials and tokens in key=value or key: value form.
	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`)
	apiKeyRegex   = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	// Three-part base64url tokens (JWTs).
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	// SQL fragments surfaced by driver errors.
	sqlRegex = regexp.MustCompile(
		`(?i)(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP)[\s\w,*()]+(?:FROM|INTO|SET|TABLE)(?:[\s\w,*()='"]+)?`,
	)

	patterns = []*regexp.Regexp{
		dbConnRegex,
		passwordRegex,
		apiKeyRegex,
		jwtTokenRegex,
		sqlRegex,
	}
)

// String redacts sensitive fragments from s.
func String(s string) string {
	if s == "" {
		return s
	}
	for _, pattern := range patterns {
		s = pattern.ReplaceAllString(s, RedactionPlaceholder)
	}
	return s
}

// Error redacts an error's message. A nil error yields an empty string.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
