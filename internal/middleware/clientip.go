package middleware

import (
	"net"
	"net/http"
)

// ClientIP extracts the real client IP from the request. The raw address is
// used only for digests and rate limiting; it is never persisted or logged.
func ClientIP(r *http.Request) string {
	// Check for IP in various headers (in order of preference)
	headers := []string{
		"CF-Connecting-IP", // Cloudflare
		"X-Forwarded-For",  // Standard proxy header
		"X-Real-IP",        // Nginx proxy
		"X-Client-IP",      // Apache proxy
	}

	for _, header := range headers {
		if ip := r.Header.Get(header); ip != "" {
			// X-Forwarded-For can contain multiple IPs, take the first one
			if header == "X-Forwarded-For" {
				if firstIP := firstIP(ip); firstIP != "" {
					return firstIP
				}
			} else {
				return ip
			}
		}
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// firstIP extracts the first IP from a comma-separated list
func firstIP(ips string) string {
	for i, char := range ips {
		if char == ',' || char == ' ' {
			return ips[:i]
		}
	}
	return ips
}
