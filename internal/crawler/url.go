package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeSeed turns user input into the absolute seed URL. It defaults the
// scheme to http, accepts a bare host, lowercases scheme and host, removes
// default ports, drops query and fragment, and ends the path with a slash.
func NormalizeSeed(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url: %w", ErrInvalidSeed)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + strings.TrimPrefix(raw, "//")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w: %w", raw, ErrInvalidSeed, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q: %w", u.Scheme, ErrInvalidSeed)
	}
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("no host in %q: %w", raw, ErrInvalidSeed)
	}

	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		u.RawPath = ""
	}
	return u.String(), nil
}

// resolveLink joins href against the page URL and keeps only http(s) targets.
func resolveLink(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	target := base.ResolveReference(ref)
	switch strings.ToLower(target.Scheme) {
	case "http", "https":
	default:
		return nil, false
	}
	if target.Host == "" {
		return nil, false
	}
	return target, true
}
