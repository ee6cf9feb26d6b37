package logging

import (
	"log/slog"
	"net/url"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Keys whose values are public ledger data and never need masking.
var publicKeys = map[string]struct{}{
	"service":   {},
	"env":       {},
	"component": {},
	"method":    {},
	"type":      {},
	"error":     {},
	"reason":    {},
	"height":    {},
	"txHash":    {},
	"user":      {},
	"mint":      {},
	"symbol":    {},
	"amount":    {},
	"driver":    {},
}

// MaskField returns key=value for public keys and key=[REDACTED] otherwise.
// Empty values are logged as-is.
func MaskField(key, value string) slog.Attr {
	if _, ok := publicKeys[strings.TrimSpace(key)]; ok || strings.TrimSpace(value) == "" {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskURL keeps the scheme and host of raw and redacts credentials, path and
// query, which commonly embed tokens.
func MaskURL(key, raw string) slog.Attr {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return MaskField(key, raw)
	}
	masked := u.Scheme + "://" + u.Host
	if u.User != nil || (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
		masked += "/" + RedactedValue
	}
	return slog.String(key, masked)
}
