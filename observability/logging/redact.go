package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive attribute values in logs.
const RedactedValue = "[REDACTED]"

// plainKeys are the attribute keys refchain logs verbatim. Addresses, hashes
// and error classifications are public; DSNs, mint references, signatures
// and credentials are not.
var plainKeys = map[string]struct{}{
	"component":   {},
	"txhash":      {},
	"type":        {},
	"from":        {},
	"recipient":   {},
	"asset":       {},
	"program":     {},
	"participant": {},
	"code":        {},
	"kind":        {},
	"method":      {},
	"request_id":  {},
	"error":       {},
}

// IsPlain reports whether values logged under key are emitted unmasked.
func IsPlain(key string) bool {
	_, ok := plainKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField builds a string attribute, replacing the value with
// RedactedValue unless key is plain. Empty values pass through so a missing
// setting stays visible.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsPlain(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskBearer keeps the scheme of an Authorization header and drops the
// credential.
func MaskBearer(header string) string {
	scheme, credential, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || strings.TrimSpace(credential) == "" {
		if strings.TrimSpace(header) == "" {
			return header
		}
		return RedactedValue
	}
	return scheme + " " + RedactedValue
}
