package fit

import (
	"math/rand"
	"testing"

	"github.com/tormoder/fit/dyncrc16"
)

func TestCRC16MatchesReferenceImplementation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{0, 1, 12, 14, 255, 4096} {
		data := make([]byte, n)
		rng.Read(data)
		if got, want := CRC16(data), dyncrc16.Checksum(data); got != want {
			t.Errorf("len %d: CRC16 = 0x%04x, reference = 0x%04x", n, got, want)
		}
	}
}

func TestCRC16Residue(t *testing.T) {
	data := []byte(".FIT header and body bytes")
	crc := CRC16(data)
	withCRC := append(append([]byte{}, data...), byte(crc), byte(crc>>8))
	if residue := CRC16(withCRC); residue != 0 {
		t.Errorf("expected zero residue after appending CRC, got 0x%04x", residue)
	}
}

func TestWriterGrowsWithoutTruncating(t *testing.T) {
	w := newWriter(16)
	for i := 0; i < 100000; i++ {
		w.u32(uint32(i))
	}
	if w.Len() != 400000 {
		t.Fatalf("expected 400000 bytes, got %d", w.Len())
	}
	if c := cap(w.Bytes()); c&(c-1) != 0 {
		t.Errorf("expected power-of-two capacity from doubling, got %d", c)
	}
	b := w.Bytes()
	last := b[len(b)-4:]
	if last[0] != 0x9F || last[1] != 0x86 || last[2] != 0x01 || last[3] != 0x00 {
		t.Errorf("unexpected trailing bytes % x", last)
	}
}

func TestAsciiField(t *testing.T) {
	tests := []struct {
		in   string
		size int
		want string
	}{
		{"Warmup", 16, "Warmup"},
		{"Café Crème", 16, "Cafe Creme"},
		{"Zürich → Genève", 16, "Zurich  Geneve"},
		{"A very long workout name", 16, "A very long wor"},
		{"日本", 8, ""},
	}
	for _, tt := range tests {
		field := asciiField(tt.in, tt.size)
		if len(field) != tt.size {
			t.Errorf("%q: field length %d, want %d", tt.in, len(field), tt.size)
		}
		if field[tt.size-1] != 0 {
			t.Errorf("%q: field not NUL terminated", tt.in)
		}
		got := string(field[:len(tt.want)])
		if got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.in, got, tt.want)
		}
		for _, b := range field {
			if b > 0x7F {
				t.Errorf("%q: non-ASCII byte 0x%02x", tt.in, b)
			}
		}
	}
}
