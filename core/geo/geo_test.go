package geo

import (
	"context"
	"errors"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vat-calculator/core/types"
)

type countingLookup struct {
	answer string
	err    error
	calls  []netip.Addr
}

func (l *countingLookup) CountryForIP(_ context.Context, addr netip.Addr) (string, error) {
	l.calls = append(l.calls, addr)
	return l.answer, l.err
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "192.168.1.1", want: "192.168.1.1", ok: true},
		{in: " 8.8.8.8 ", want: "8.8.8.8", ok: true},
		{in: "2001:db8::1", want: "2001:db8::1", ok: true},
		{in: "::ffff:10.0.0.1", want: "10.0.0.1", ok: true},
		{in: "1.2.3.4:8080", want: "1.2.3.4", ok: true},
		{in: "[2001:db8::1]:443", want: "2001:db8::1", ok: true},
		{in: "", ok: false},
		{in: "999.1.1.1", ok: false},
		{in: "example.com", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			addr, ok := ParseAddress(tt.in)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, addr.String())
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	lookup := &countingLookup{answer: "de"}
	r := NewResolver(lookup, nil)

	code, ok := r.ResolveCountry(context.Background(), "85.214.132.117")
	assert.True(t, ok)
	assert.Equal(t, types.CountryCode("DE"), code)
	require.Len(t, lookup.calls, 1)
	assert.Equal(t, netip.MustParseAddr("85.214.132.117"), lookup.calls[0])
}

func TestInvalidAddressSkipsLookup(t *testing.T) {
	lookup := &countingLookup{answer: "DE"}
	r := NewResolver(lookup, nil)

	for _, address := range []string{"", "not-an-ip", "300.300.300.300"} {
		code, ok := r.ResolveCountry(context.Background(), address)
		assert.False(t, ok)
		assert.Equal(t, types.CountryCode(""), code)
	}
	assert.Empty(t, lookup.calls)
}

func TestLookupFailures(t *testing.T) {
	tests := []struct {
		name   string
		lookup Lookup
	}{
		{name: "error", lookup: &countingLookup{err: errors.New("connection refused")}},
		{name: "empty answer", lookup: &countingLookup{answer: ""}},
		{name: "three letters", lookup: &countingLookup{answer: "DEU"}},
		{name: "not letters", lookup: &countingLookup{answer: "1;"}},
		{name: "no lookup", lookup: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := NewResolver(tt.lookup, nil).ResolveCountry(context.Background(), "1.1.1.1")
			assert.False(t, ok)
			assert.True(t, code.IsEmpty())
		})
	}
}

func TestClientAddress(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", ClientAddress(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientAddress(req))

	req.Header.Set("X-Forwarded-For", " , 10.0.0.1")
	assert.Equal(t, "10.1.2.3", ClientAddress(req))
}

func TestResolveRequestCountry(t *testing.T) {
	lookup := LookupFunc(func(_ context.Context, addr netip.Addr) (string, error) {
		if addr == netip.MustParseAddr("203.0.113.7") {
			return "NL", nil
		}
		return "", errors.New("unexpected address")
	})
	r := NewResolver(lookup, nil)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	code, ok := r.ResolveRequestCountry(context.Background(), req)
	assert.True(t, ok)
	assert.Equal(t, types.CountryCode("NL"), code)

	_, ok = r.ResolveRequestCountry(context.Background(), nil)
	assert.False(t, ok)
}
