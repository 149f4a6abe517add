package domain

import (
	"net"
	"regexp"
	"strings"
)

// IndicatorType classifies a raw indicator value for the platform's
// per-type resource endpoints.
type IndicatorType string

const (
	IPAddress IndicatorType = "ip"
	Host      IndicatorType = "host"
	URL       IndicatorType = "url"
	FileHash  IndicatorType = "file"
)

// IsIPAddress reports whether value is a valid IPv4 or IPv6 literal.
// Anything that fails a strict parse (hostnames, URLs, empty string) is
// false; the check never panics.
func IsIPAddress(value string) bool {
	return net.ParseIP(value) != nil
}

// portPattern is deliberately unanchored: any colon-digit run in the value
// is removed, not just a trailing port.
var portPattern = regexp.MustCompile(`:\d+`)

// StripPort removes a ":<port>" suffix from an HTTP host value.
func StripPort(host string) string {
	return portPattern.ReplaceAllString(host, "")
}

// ClassifyIndicator maps a raw indicator value to its platform type. File
// indicators are never classified here; they are built from hash sets, not
// from a bare value.
func ClassifyIndicator(value string) IndicatorType {
	if IsIPAddress(value) {
		return IPAddress
	}
	if strings.Contains(value, "://") || strings.Contains(value, "/") {
		return URL
	}
	return Host
}
