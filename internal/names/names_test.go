package names_test

import (
	"testing"

	"github.com/Qudix/mob/internal/names"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"boost-di", "boost-di", true},
		{"boost-di", "Boost_DI", true},
		{"boost_di", "BOOST-DI", true},
		{"boost-di", "boost-di2", false},
		{"boost-di", "boost-dj", false},
		{"", "", true},
		{"a", "", false},
		{"-", "_", true},
		{"_", "-", true},
		{"a-b_c", "A_B-C", true},
		// a separator never matches a letter
		{"a-b", "aab", false},
	}

	for _, tc := range tests {
		if got := names.Equal(tc.a, tc.b); got != tc.want {
			t.Errorf("Equal(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestHasGlob(t *testing.T) {
	if names.HasGlob("boost-di") {
		t.Error("HasGlob(boost-di) = true")
	}
	if !names.HasGlob("boost*") {
		t.Error("HasGlob(boost*) = false")
	}
}

func TestMatch_Glob(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    bool
	}{
		{"boost_di", "boost*", true},
		{"boost_di", "*di", true},
		{"boost_di", "*DI", true},
		{"boost-di", "boost_*", true},
		{"boost_di", "x*", false},
		{"boost_di", "*", true},
	}

	for _, tc := range tests {
		got, err := names.Match(tc.name, tc.pattern)
		if err != nil {
			t.Fatalf("Match(%q, %q): %v", tc.name, tc.pattern, err)
		}
		if got != tc.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tc.name, tc.pattern, got, tc.want)
		}
	}
}

func TestMatch_MalformedGlob(t *testing.T) {
	// unbalanced regex syntax must surface as an error, not a silent false
	if _, err := names.Match("boost_di", "boost*("); err == nil {
		t.Error("expected error for malformed glob, got nil")
	}
	if _, err := names.CompileGlob("[*"); err == nil {
		t.Error("expected error for unbalanced character class, got nil")
	}
}

func TestMatch_ExactWithoutGlob(t *testing.T) {
	got, err := names.Match("boost-di", "Boost_DI")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !got {
		t.Error("Match(boost-di, Boost_DI) = false, want true")
	}
}
