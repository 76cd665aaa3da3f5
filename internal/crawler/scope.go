package crawler

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Scope decides whether a host belongs to the seed's registrable domain.
type Scope struct {
	base string
}

// NewScope derives the registrable domain (eTLD+1) of seed. IP literals and
// hosts the public suffix list cannot reduce are used verbatim.
func NewScope(seed *url.URL) (*Scope, error) {
	if seed == nil {
		return nil, fmt.Errorf("nil seed: %w", ErrInvalidSeed)
	}
	host := strings.TrimSuffix(strings.ToLower(seed.Hostname()), ".")
	if host == "" {
		return nil, fmt.Errorf("seed %q has no host: %w", seed.String(), ErrInvalidSeed)
	}
	base := host
	if net.ParseIP(host) == nil {
		if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			base = etld1
		}
	}
	return &Scope{base: base}, nil
}

// Base returns the registrable domain being crawled.
func (s *Scope) Base() string {
	return s.base
}

// Contains reports whether u's host equals the base domain or is a subdomain of it.
func (s *Scope) Contains(u *url.URL) bool {
	if u == nil {
		return false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return false
	}
	return host == s.base || strings.HasSuffix(host, "."+s.base)
}
