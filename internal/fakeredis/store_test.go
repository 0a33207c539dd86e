package fakeredis

import "testing"

func TestSetNXOnlySucceedsOnce(t *testing.T) {
	s := newStore()

	if got := s.setnx("k", []byte("first")); got != 1 {
		t.Fatalf("expected first SETNX to succeed (1), got %d", got)
	}
	if got := s.setnx("k", []byte("second")); got != 0 {
		t.Fatalf("expected second SETNX to fail (0), got %d", got)
	}
	val, ok := s.get("k")
	if !ok || string(val) != "first" {
		t.Fatalf("expected key to still hold 'first', got %q (ok=%v)", val, ok)
	}
}
