package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// Pattern to match potential passwords in connection strings.
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass|token)=[^;&\s]+`)

	// Pattern to match bearer tokens and OAuth access tokens.
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_.!~+/]+=*`)

	// Pattern to match potential API keys in URLs or error text.
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|access[_-]?token|key)=[A-Za-z0-9-_]{16,}`)

	// Pattern to match credentials embedded in URLs (user:pass@host format).
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)

	// Pattern to match basic-auth values (base64 blob after "Basic ").
	basicAuthPattern = regexp.MustCompile(`Basic\s+[A-Za-z0-9+/]+=*`)
)

// SanitizeConnectionString removes credentials from database and provider
// connection strings before they are logged.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError scrubs provider error messages that may echo back request
// headers, tokens, or connection strings. Every provider failure goes through
// this before reaching the log.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = basicAuthPattern.ReplaceAllString(sanitized, "Basic "+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}
