package domain

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "case and trailing slash", input: "https://Example.com/Page/", expected: "https://example.com/page"},
		{name: "http becomes https", input: "http://example.com/a", expected: "https://example.com/a"},
		{name: "www stripped", input: "https://www.example.com/", expected: "https://example.com"},
		{name: "default port 443", input: "https://example.com:443/x", expected: "https://example.com/x"},
		{name: "default port 80", input: "http://example.com:80/x", expected: "https://example.com/x"},
		{name: "custom port kept", input: "http://example.com:8080/x", expected: "https://example.com:8080/x"},
		{name: "fragment dropped", input: "https://example.com/a#section", expected: "https://example.com/a"},
		{name: "query sorted", input: "https://example.com/s?b=2&a=1", expected: "https://example.com/s?a=1&b=2"},
		{name: "repeated keys keep order", input: "https://example.com/s?t=z&a=1&t=y", expected: "https://example.com/s?a=1&t=z&t=y"},
		{name: "multiple trailing slashes", input: "https://example.com/a///", expected: "https://example.com/a"},
		{name: "surrounding spaces", input: "  https://example.com/a  ", expected: "https://example.com/a"},
		{name: "not a url", input: "  Not A URL ", expected: "not a url"},
		{name: "relative path", input: "/Docs/Index", expected: "/docs/index"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.input); got != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeURLEquivalence(t *testing.T) {
	a := NormalizeURL("http://www.Example.com:80/Page/?b=2&a=1#top")
	b := NormalizeURL("https://example.com/page?a=1&b=2")
	if a != b {
		t.Errorf("expected equivalent URLs, got %q and %q", a, b)
	}
}
