package bitmath

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestPowersOfTwo(t *testing.T) {
	for i := uint(0); i < 256; i++ {
		x := new(uint256.Int).Lsh(uint256.NewInt(1), i)

		msb, err := MostSignificantBit(x)
		if err != nil {
			t.Fatalf("msb(2^%d): unexpected error: %v", i, err)
		}
		if msb != i {
			t.Fatalf("msb(2^%d) = %d, want %d", i, msb, i)
		}

		lsb, err := LeastSignificantBit(x)
		if err != nil {
			t.Fatalf("lsb(2^%d): unexpected error: %v", i, err)
		}
		if lsb != i {
			t.Fatalf("lsb(2^%d) = %d, want %d", i, lsb, i)
		}
	}
}

func TestMaxUint256(t *testing.T) {
	max := new(uint256.Int).Not(uint256.NewInt(0))

	msb, err := MostSignificantBit(max)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msb != 255 {
		t.Fatalf("msb(2^256-1) = %d, want 255", msb)
	}

	lsb, err := LeastSignificantBit(max)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lsb != 0 {
		t.Fatalf("lsb(2^256-1) = %d, want 0", lsb)
	}
}

func TestZeroFails(t *testing.T) {
	if _, err := MostSignificantBit(uint256.NewInt(0)); !errors.Is(err, ErrZeroValue) {
		t.Fatalf("msb(0): expected ErrZeroValue, got %v", err)
	}
	if _, err := LeastSignificantBit(uint256.NewInt(0)); !errors.Is(err, ErrZeroValue) {
		t.Fatalf("lsb(0): expected ErrZeroValue, got %v", err)
	}
}

func TestCompositeValues(t *testing.T) {
	// 2^160 + 2^8
	x := new(uint256.Int).Lsh(uint256.NewInt(1), 160)
	x.Or(x, new(uint256.Int).Lsh(uint256.NewInt(1), 8))

	msb, _ := MostSignificantBit(x)
	lsb, _ := LeastSignificantBit(x)
	if msb != 160 || lsb != 8 {
		t.Fatalf("got msb=%d lsb=%d, want 160/8", msb, lsb)
	}
}
