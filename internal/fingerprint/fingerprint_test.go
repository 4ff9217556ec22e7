package fingerprint

import "testing"

func TestHash(t *testing.T) {
	t.Run("stable", func(t *testing.T) {
		a := Hash([]byte("statement.pdf contents"))
		b := Hash([]byte("statement.pdf contents"))
		if a != b {
			t.Errorf("Hash not stable: %q != %q", a, b)
		}
	})

	t.Run("length and case", func(t *testing.T) {
		h := Hash([]byte("x"))
		if len(h) != 32 {
			t.Errorf("len(Hash) = %d, want 32 hex chars", len(h))
		}
		for _, c := range h {
			if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
				t.Errorf("unexpected character %q in hash", c)
			}
		}
	})

	t.Run("distinct inputs", func(t *testing.T) {
		if Hash([]byte("a")) == Hash([]byte("b")) {
			t.Error("distinct inputs produced identical fingerprints")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if Hash(nil) != Hash([]byte{}) {
			t.Error("nil and empty slice should hash identically")
		}
	})
}
