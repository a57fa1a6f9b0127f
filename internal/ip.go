package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/netip"
	"strings"
)

// CanonicalIP normalises an address for binding comparison. IPv4-mapped IPv6
// addresses are unmapped and zones are dropped. Values that do not parse as an
// IP are returned trimmed but otherwise unchanged.
func CanonicalIP(raw string) string {
	raw = strings.TrimSpace(raw)
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return raw
	}
	return addr.Unmap().WithZone("").String()
}

// PeerIP extracts the host part of a transport peer address such as
// http.Request.RemoteAddr. It never consults forwarded headers.
func PeerIP(remoteAddr string) (string, bool) {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return "", false
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	host = CanonicalIP(host)
	if host == "" {
		return "", false
	}
	return host, true
}

// Fingerprint returns a short non-reversible label for secrets that must not
// appear in logs.
func Fingerprint(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:4])
}
