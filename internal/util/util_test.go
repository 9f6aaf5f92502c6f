package util

import "testing"

func TestSafeAtoi(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"125", 125},
		{" 42 ", 42},
		{"-2", -2},
		{"abc", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := SafeAtoi(tt.input); got != tt.want {
			t.Errorf("SafeAtoi(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestSafeAtof(t *testing.T) {
	if got := SafeAtof("5.678"); got != 5.678 {
		t.Errorf("SafeAtof(5.678) = %v", got)
	}
	if got := SafeAtof("nope"); got != 0 {
		t.Errorf("SafeAtof(nope) = %v, want 0", got)
	}
}

func TestIsDigits(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"244182", true},
		{"0", true},
		{"", false},
		{"12a", false},
		{"-1", false},
		{"१२", false}, // non-ASCII digits
	}
	for _, tt := range tests {
		if got := IsDigits(tt.input); got != tt.want {
			t.Errorf("IsDigits(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{5.678, "5.678"},
		{5, "5.0"},
		{0, "0.0"},
		{4.25, "4.25"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.input); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
