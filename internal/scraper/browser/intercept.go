package browser

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod/lib/proto"
)

// RequestPolicy decides which sub-resources a page may load
type RequestPolicy struct {
	// BlockedHosts are matched against the request host and its parents
	BlockedHosts []string
	// AllowedPatterns always pass, whatever the resource type
	AllowedPatterns []string
}

// ShouldBlock reports whether a request must be failed. Challenge images are
// let through by AllowedPatterns; everything else outside document, script,
// xhr and fetch is blocked, as is anything sent to an analytics host.
func (p RequestPolicy) ShouldBlock(resourceType proto.NetworkResourceType, rawURL string) bool {
	lowered := strings.ToLower(rawURL)
	for _, pattern := range p.AllowedPatterns {
		if pattern != "" && strings.Contains(lowered, strings.ToLower(pattern)) {
			return false
		}
	}

	if p.blockedHost(rawURL) {
		return true
	}

	switch resourceType {
	case proto.NetworkResourceTypeDocument,
		proto.NetworkResourceTypeScript,
		proto.NetworkResourceTypeXHR,
		proto.NetworkResourceTypeFetch:
		return false
	default:
		return true
	}
}

func (p RequestPolicy) blockedHost(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, blocked := range p.BlockedHosts {
		blocked = strings.ToLower(blocked)
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}
