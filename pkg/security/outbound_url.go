package security

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

var ErrUnsafeURL = errors.New("unsafe outbound URL")

// OutboundURLOptions configures outbound request URL validation.
type OutboundURLOptions struct {
	// AllowHTTP permits plain HTTP URLs. HTTPS is always allowed.
	AllowHTTP bool
	// AllowLocalNetworks permits loopback/private/link-local IP targets and localhost hostnames.
	AllowLocalNetworks bool
}

// ValidateOutboundURL checks that rawURL can be used as the target of an
// authenticated request.
func ValidateOutboundURL(rawURL string, opts OutboundURLOptions) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(ErrUnsafeURL, "invalid URL: %v", err)
	}

	switch parsed.Scheme {
	case "https":
	case "http":
		if !opts.AllowHTTP {
			return errors.Wrapf(ErrUnsafeURL, "http scheme is not allowed for %s", parsed.Host)
		}
	default:
		return errors.Wrapf(ErrUnsafeURL, "unsupported URL scheme %q", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return errors.Wrap(ErrUnsafeURL, "URL host is required")
	}
	if parsed.User != nil {
		return errors.Wrap(ErrUnsafeURL, "URL must not contain credentials")
	}

	if !opts.AllowLocalNetworks && isLocalHostname(host) {
		return errors.Wrapf(ErrUnsafeURL, "local hostname %q is not allowed", host)
	}

	// IP literals are checked without DNS lookups
	if addr, err := netip.ParseAddr(host); err == nil {
		if addr.Zone() != "" && !opts.AllowLocalNetworks {
			return errors.Wrapf(ErrUnsafeURL, "zoned IP address %q is not allowed", host)
		}
		addr = addr.Unmap()

		if addr.IsUnspecified() || addr.IsMulticast() {
			return errors.Wrapf(ErrUnsafeURL, "disallowed IP address %q", host)
		}
		if !opts.AllowLocalNetworks && isLocalAddr(addr) {
			return errors.Wrapf(ErrUnsafeURL, "local network IP %q is not allowed", host)
		}
	}

	return nil
}

// ValidateBaseURL applies the policy used for completion service endpoints:
// HTTPS anywhere, plain HTTP only to local hosts such as a self-hosted
// OpenAI compatible server.
func ValidateBaseURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(ErrUnsafeURL, "invalid URL: %v", err)
	}
	opts := OutboundURLOptions{AllowLocalNetworks: true}
	if parsed.Scheme == "http" && IsLocalHost(parsed.Hostname()) {
		opts.AllowHTTP = true
	}
	return ValidateOutboundURL(rawURL, opts)
}

// IsLocalHost reports whether host names the local machine or a private
// network address. Hostnames other than localhost are not resolved.
func IsLocalHost(host string) bool {
	host = strings.ToLower(host)
	if isLocalHostname(host) {
		return true
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return isLocalAddr(addr.Unmap())
}

func isLocalHostname(host string) bool {
	return host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local")
}

func isLocalAddr(addr netip.Addr) bool {
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast()
}
