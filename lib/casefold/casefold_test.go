package casefold

import "testing"

func TestToLower(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GET", "get"},
		{"GeT", "get"},
		{"mget", "mget"},
		{"", ""},
		{"MSET-FOO_1", "mset-foo_1"},
	}
	for _, tt := range tests {
		if got := ToLower(tt.in); got != tt.want {
			t.Errorf("ToLower(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToLowerReturnsSameStringWhenUnchanged(t *testing.T) {
	in := "already-lower"
	if got := ToLower(in); got != in {
		t.Errorf("ToLower(%q) = %q, want unchanged %q", in, got, in)
	}
}
