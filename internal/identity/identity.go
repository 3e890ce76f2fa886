// Package identity derives privacy-preserving client identities from HTTP
// requests. The raw IP is hashed with a server-side salt and never stored or
// logged; the hash is deterministic so it can key rate-limit counters and
// session rows. Privacy measure, not an abuse-proof one.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// Unknown is used when no client address can be determined.
const Unknown = "unknown"

// ClientIP extracts the client address from trusted proxy headers.
// X-Forwarded-For wins (first hop), then X-Real-IP, then Unknown.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	return Unknown
}

// Hash returns the hex-encoded salted hash of an IP.
func Hash(ip, salt string) string {
	sum := sha256.Sum256([]byte(ip + salt))
	return hex.EncodeToString(sum[:])
}

// FromRequest returns the hashed identity for a request.
func FromRequest(r *http.Request, salt string) string {
	return Hash(ClientIP(r), salt)
}
