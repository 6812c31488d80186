// Package redact scrubs secret-shaped substrings out of text before it
// is logged: verification error details written to the audit log, and
// the command vectors in command-mismatch warnings, can incidentally
// carry credentials from the environment being verified.
package redact

import (
	"regexp"
)

var sensitivePatterns = []*regexp.Regexp{
	// AWS
	regexp.MustCompile(`(?i)(aws_access_key_id|aws_secret_access_key|aws_session_token)\s*[=:]\s*['"]?[A-Za-z0-9/+=]{20,}['"]?`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),

	// GitHub
	regexp.MustCompile(`(?i)(github_token|gh_token|github_pat)\s*[=:]\s*['"]?[A-Za-z0-9_-]{30,}['"]?`),
	regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`gho_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`ghu_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`ghs_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`ghr_[A-Za-z0-9]{36}`),

	// Generic API keys
	regexp.MustCompile(`(?i)(api_key|apikey|api-key|secret_key|secretkey|secret-key|access_token|auth_token)\s*[=:]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`),

	// Private keys
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`),

	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_-]{20,}`),

	// Basic auth in URLs
	regexp.MustCompile(`https?://[^:]+:[^@]+@`),

	// Slack tokens
	regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`),

	// Stripe
	regexp.MustCompile(`sk_live_[0-9a-zA-Z]{24}`),
	regexp.MustCompile(`rk_live_[0-9a-zA-Z]{24}`),

	// Password/secret assignments with a value of 8+ characters
	regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`),
}

const redactedPlaceholder = "[REDACTED]"

func Redact(input string) string {
	result := input
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, redactedPlaceholder)
	}
	return result
}

// RedactArgs redacts each element of a command vector independently
// (e.g. Link.Command, before command.Align logs it in a warning).
func RedactArgs(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = Redact(arg)
	}
	return result
}
