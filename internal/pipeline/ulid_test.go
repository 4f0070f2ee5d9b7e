package pipeline

import (
	"strings"
	"testing"
)

func TestNewULID_Format(t *testing.T) {
	id := NewULID()
	if len(id) != 26 {
		t.Fatalf("expected 26 characters, got %d (%q)", len(id), id)
	}
	for _, c := range id {
		if !strings.ContainsRune(crockford, c) {
			t.Errorf("unexpected character %q in %q", c, id)
		}
	}
}

func TestNewULID_Monotonic(t *testing.T) {
	prev := NewULID()
	for range 1000 {
		next := NewULID()
		if next <= prev {
			t.Fatalf("expected %q > %q", next, prev)
		}
		prev = next
	}
}

func TestEncodeULID_KnownValues(t *testing.T) {
	var zero [16]byte
	if got := encodeULID(zero); got != "00000000000000000000000000" {
		t.Errorf("expected all zeros, got %q", got)
	}

	var one [16]byte
	one[15] = 1
	if got := encodeULID(one); got != "00000000000000000000000001" {
		t.Errorf("expected trailing 1, got %q", got)
	}

	var max [16]byte
	for i := range max {
		max[i] = 0xff
	}
	if got := encodeULID(max); got != "7ZZZZZZZZZZZZZZZZZZZZZZZZZ" {
		t.Errorf("expected max ULID, got %q", got)
	}
}

func TestIncrementEntropy_Carries(t *testing.T) {
	e := [10]byte{0, 0, 0, 0, 0, 0, 0, 0, 0x01, 0xff}
	incrementEntropy(&e)
	if e[8] != 0x02 || e[9] != 0x00 {
		t.Errorf("expected carry into byte 8, got %x", e)
	}
}
