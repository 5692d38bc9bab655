package utils

import "testing"

func TestIsHexID(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"64f1c2d3e4a5b6c7d8e9f0a1", true},
		{"000000000000000000000000", true},
		{"", false},
		{"64f1c2d3e4a5b6c7d8e9f0a", false},    // 23 chars
		{"64f1c2d3e4a5b6c7d8e9f0a12", false},  // 25 chars
		{"64F1C2D3E4A5B6C7D8E9F0A1", false},   // uppercase
		{"64f1c2d3e4a5b6c7d8e9f0g1", false},   // non-hex char
		{"64f1c2d3-4a5b6c7d8e9f0a1", false},   // punctuation
	}
	for _, tc := range cases {
		if got := IsHexID(tc.in); got != tc.want {
			t.Errorf("IsHexID(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
