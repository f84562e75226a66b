package main

import "testing"

func TestCDMVersionInRange(t *testing.T) {
	tests := []struct {
		version string
		rng     string
		want    bool
	}{
		{"5.4", ">=5.0.0", true},
		{"5.4", ">=5.0.0 <6.0.0", true},
		{"6.0", ">=5.0.0 <6.0.0", false},
		{"4.9", ">=5.0.0", false},
		{"5.0", ">5.0.0", false},
		{"5.0.1", ">5.0.0", true},
		{"5.4", "=5.4.0", true},
		{"5.4", "5.4", true},
		{"5.3", "<=5.3.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.version+" vs "+tt.rng, func(t *testing.T) {
			if got := cdmVersionInRange(tt.version, tt.rng); got != tt.want {
				t.Errorf("cdmVersionInRange(%q, %q) = %v, want %v", tt.version, tt.rng, got, tt.want)
			}
		})
	}
}

func TestCanonicalVersion(t *testing.T) {
	tests := []struct{ in, want string }{
		{"5.4", "v5.4.0"},
		{"v5.4.1", "v5.4.1"},
		{"5", "v5.0.0"},
	}
	for _, tt := range tests {
		if got := canonicalVersion(tt.in); got != tt.want {
			t.Errorf("canonicalVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
