package utils

import (
	"net/http/httptest"
	"testing"
)

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", "192.168.1.7", "fd00::/8", "nope"})

	tests := []struct {
		ip   string
		want bool
	}{
		{ip: "10.1.2.3", want: true},
		{ip: "192.168.1.7", want: true},
		{ip: "192.168.1.8", want: false},
		{ip: "::ffff:10.0.0.1", want: true},
		{ip: "fd12::1", want: true},
		{ip: "2001:db8::1", want: false},
		{ip: "garbage", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := m.Allow(tt.ip); got != tt.want {
				t.Errorf("Allow(%q) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}

	if m.IsEmpty() {
		t.Error("IsEmpty() = true")
	}
	if inv := m.Invalid(); len(inv) != 1 || inv[0] != "nope" {
		t.Errorf("Invalid() = %v", inv)
	}
	if !NewIPMatcher(nil).IsEmpty() {
		t.Error("nil list should give an empty matcher")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		xff        string
		realIP     string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", remote: "10.0.0.1:1234", want: "10.0.0.1"},
		{name: "ipv6 remote", remote: "[fd00::1]:80", want: "fd00::1"},
		{name: "xff ignored without trust", remote: "10.0.0.1:1", xff: "1.2.3.4", want: "10.0.0.1"},
		{name: "xff first entry", remote: "10.0.0.1:1", xff: " 1.2.3.4 , 5.6.7.8", trustProxy: true, want: "1.2.3.4"},
		{name: "real ip fallback", remote: "10.0.0.1:1", realIP: "9.9.9.9", trustProxy: true, want: "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
