package security

import (
	"regexp"
	"strings"
)

const redacted = "***REDACTED***"

var apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret|token)=([a-zA-Z0-9_-]{8,})`)

// MaskAPIKey keeps the first four characters of a key
func MaskAPIKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-4)
}

// RedactSecrets removes every occurrence of the given secrets and any
// api key query parameter from s
func RedactSecrets(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, redacted)
		}
	}
	return apiKeyPattern.ReplaceAllString(s, "$1="+redacted)
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }

// RedactError hides secrets in err's message while keeping it unwrappable
func RedactError(err error, secrets ...string) error {
	if err == nil {
		return nil
	}
	msg := RedactSecrets(err.Error(), secrets...)
	if msg == err.Error() {
		return err
	}
	return &redactedError{msg: msg, err: err}
}
