package logger

import (
	"log/slog"
	"strings"
)

// Sensitive key patterns. Any attribute whose key contains one is redacted.
var sensitiveKeyPatterns = []string{
	"passphrase",
	"password",
	"secret",
	"token",
	"credential",
	"auth",
	"bearer",
	"material",
}

// Value prefixes that mark a credential regardless of the key.
var sensitiveValuePrefixes = []string{
	"Bearer ",
	"Basic ",
}

const redactedValue = "***REDACTED***"

// redactSensitive replaces the value of a sensitive attribute.
// Empty strings and non-string scalars such as durations are kept.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}

	case slog.KindString:
		s := a.Value.String()
		if s == "" {
			return a
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if IsSensitiveValue(s) {
			return slog.String(a.Key, RedactString(s))
		}

	case slog.KindAny:
		if IsSensitiveKey(a.Key) && a.Value.Any() != nil {
			return slog.String(a.Key, redactedValue)
		}
	}
	return a
}

// RedactString masks a credential carrying a known scheme prefix, keeping
// the scheme and the last three characters.
func RedactString(value string) string {
	for _, prefix := range sensitiveValuePrefixes {
		if strings.HasPrefix(value, prefix) {
			return maskValue(value, prefix)
		}
	}
	return value
}

func maskValue(value, prefix string) string {
	body := value[len(prefix):]
	if len(body) <= 6 {
		return prefix + "***"
	}
	return prefix + "***" + body[len(body)-3:]
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue checks if a value looks like a credential.
func IsSensitiveValue(value string) bool {
	for _, prefix := range sensitiveValuePrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
