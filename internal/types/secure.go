package types

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// redactedPlaceholder is the string used to replace secret values in logs and serialization.
const redactedPlaceholder = "***REDACTED***"

// redactedJSON is the pre-computed JSON encoding of the redacted placeholder.
var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString is a string type that prevents accidental logging or
// serialization of credentials. String() and MarshalJSON() return a redacted
// placeholder; Unmask() returns the raw value.
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw plaintext value of the secret.
// Only call it where the value leaves the process (an Authorization header,
// an SDK constructor).
func (s SecretString) Unmask() string {
	return string(s)
}

// IsZero reports whether no secret is set.
func (s SecretString) IsZero() bool {
	return s == ""
}

// Fingerprint returns a short, stable, non-reversible identifier for the
// secret so log lines can tell two credentials apart without revealing either.
// The empty secret has the empty fingerprint.
func (s SecretString) Fingerprint() string {
	if s == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(sum[:6])
}

// Or returns s when set, otherwise fallback. Request-level credential
// overrides use it to fall back to the configured key.
func (s SecretString) Or(fallback SecretString) SecretString {
	if s != "" {
		return s
	}
	return fallback
}
