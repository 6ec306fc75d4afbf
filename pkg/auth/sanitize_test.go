package auth

import (
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain name", input: "Gloria Vendor", want: "Gloria Vendor"},
		{name: "trim spaces", input: "  Gloria Vendor  ", want: "Gloria Vendor"},
		{name: "apostrophe kept", input: "Mary O'Brien", want: "Mary O'Brien"},
		{name: "ampersand kept", input: "Tom & Jerry Cosmetics", want: "Tom & Jerry Cosmetics"},
		{name: "angle brackets kept", input: "Glow <Co>", want: "Glow <Co>"},
		{name: "unicode name", input: "José García", want: "José García"},
		{name: "inner whitespace collapsed", input: "Glow \t  Co", want: "Glow Co"},
		{name: "newline becomes space", input: "Glow\nCo", want: "Glow Co"},
		{name: "control characters dropped", input: "Glow\x00\x1bCo\x7f", want: "Glow Co"},
		{name: "only whitespace", input: " \t\r\n ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.input); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateStringLength(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		min     int
		max     int
		wantErr string
	}{
		{name: "within range", value: "Glow Co", min: 1, max: 100},
		{name: "empty when required", value: "", min: 1, max: 100, wantErr: "full name is required"},
		{name: "too short", value: "ab", min: 3, max: 100, wantErr: "full name must be at least 3 characters long"},
		{name: "too long", value: strings.Repeat("a", 101), min: 1, max: 100, wantErr: "full name must be at most 100 characters long"},
		{name: "multibyte counted as characters", value: strings.Repeat("é", 100), min: 1, max: 100},
		{name: "no bounds", value: "", min: 0, max: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStringLength("full name", tt.value, tt.min, tt.max)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateStringLength() error = %v, want nil", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("ValidateStringLength() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
