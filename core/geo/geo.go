// Package geo infers a customer's country from a network address.
//
// Resolution never fails loudly: an unusable address or a lookup
// failure simply yields no country.
package geo

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"go.uber.org/zap"

	"vat-calculator/core/types"
	"vat-calculator/internal/logging"
	"vat-calculator/internal/metrics"
)

// Lookup maps an IP address to a country code
type Lookup interface {
	CountryForIP(ctx context.Context, addr netip.Addr) (string, error)
}

// LookupFunc adapts a function to Lookup
type LookupFunc func(ctx context.Context, addr netip.Addr) (string, error)

// CountryForIP calls f
func (f LookupFunc) CountryForIP(ctx context.Context, addr netip.Addr) (string, error) {
	return f(ctx, addr)
}

// Resolver resolves addresses through a Lookup
type Resolver struct {
	lookup Lookup
	logger *zap.Logger
}

// NewResolver creates a resolver. A nil lookup resolves nothing.
func NewResolver(lookup Lookup, logger *zap.Logger) *Resolver {
	return &Resolver{lookup: lookup, logger: logging.OrNop(logger)}
}

// ParseAddress accepts a bare IPv4/IPv6 address or host:port.
// IPv4-mapped IPv6 addresses are unmapped.
func ParseAddress(address string) (netip.Addr, bool) {
	address = strings.TrimSpace(address)
	if address == "" {
		return netip.Addr{}, false
	}
	if addr, err := netip.ParseAddr(address); err == nil {
		return addr.Unmap(), true
	}
	if ap, err := netip.ParseAddrPort(address); err == nil {
		return ap.Addr().Unmap(), true
	}
	return netip.Addr{}, false
}

// ResolveCountry returns the country of address. Empty or unparseable
// addresses do not reach the lookup.
func (r *Resolver) ResolveCountry(ctx context.Context, address string) (types.CountryCode, bool) {
	addr, ok := ParseAddress(address)
	if !ok {
		metrics.ObserveGeoLookup("invalid_address")
		return "", false
	}
	if r.lookup == nil {
		metrics.ObserveGeoLookup("no_lookup")
		return "", false
	}

	raw, err := r.lookup.CountryForIP(ctx, addr)
	if err != nil {
		metrics.ObserveGeoLookup("error")
		r.logger.Debug("geolocation failed",
			zap.String("address", addr.String()),
			zap.Error(err),
		)
		return "", false
	}

	code := types.Country(raw)
	if !code.IsAlpha2() {
		metrics.ObserveGeoLookup("miss")
		return "", false
	}
	metrics.ObserveGeoLookup("hit")
	return code, true
}

// ClientAddress returns the originating client address of a request:
// the first X-Forwarded-For hop if present, else RemoteAddr.
func ClientAddress(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		return host
	}
	return req.RemoteAddr
}

// ResolveRequestCountry resolves the country of the client behind req
func (r *Resolver) ResolveRequestCountry(ctx context.Context, req *http.Request) (types.CountryCode, bool) {
	if req == nil {
		return "", false
	}
	return r.ResolveCountry(ctx, ClientAddress(req))
}
