package mcp

// Protocol version
const (
	ProtocolVersion = "2025-11-25"
)

// SupportedProtocolVersions lists every revision the server will negotiate.
var SupportedProtocolVersions = []string{
	"2024-11-05",
	"2025-03-26",
	"2025-06-18",
	ProtocolVersion,
}

// IsSupportedProtocolVersion reports whether version can be negotiated.
func IsSupportedProtocolVersion(version string) bool {
	for _, supported := range SupportedProtocolVersions {
		if version == supported {
			return true
		}
	}
	return false
}

// NegotiateProtocolVersion echoes a supported client version and falls back to
// the latest revision otherwise.
func NegotiateProtocolVersion(requested string) string {
	if IsSupportedProtocolVersion(requested) {
		return requested
	}
	return ProtocolVersion
}
