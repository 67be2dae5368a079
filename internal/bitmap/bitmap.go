// Package bitmap maintains a sparse bitset over tick-spacing-compressed
// tick indices, one bit per initialized tick, packed into 256-bit words.
package bitmap

import (
	"errors"

	"github.com/holiman/uint256"

	"liquidityCore/internal/bitmath"
)

// ErrTickMisaligned reports a tick that is not a multiple of the spacing.
var ErrTickMisaligned = errors.New("tick not aligned to tick spacing")

// Bitmap stores only the words containing at least one set bit.
type Bitmap struct {
	words map[int16]*uint256.Int
}

func New() *Bitmap {
	return &Bitmap{words: make(map[int16]*uint256.Int)}
}

// Clone returns a deep copy of the bitmap.
func (b *Bitmap) Clone() *Bitmap {
	c := New()
	for pos, w := range b.words {
		c.words[pos] = new(uint256.Int).Set(w)
	}
	return c
}

// compress divides rounding toward negative infinity so the compressed
// index ordering matches tick ordering.
func compress(tick, tickSpacing int) int {
	c := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		c--
	}
	return c
}

func position(compressed int) (wordPos int16, bitPos uint8) {
	return int16(compressed >> 8), uint8(compressed & 255)
}

func (b *Bitmap) word(pos int16) *uint256.Int {
	if w, ok := b.words[pos]; ok {
		return w
	}
	return uint256.NewInt(0)
}

// IsInitialized reports whether the bit for tick is set.
func (b *Bitmap) IsInitialized(tick, tickSpacing int) (bool, error) {
	if tick%tickSpacing != 0 {
		return false, ErrTickMisaligned
	}
	wordPos, bitPos := position(compress(tick, tickSpacing))
	w, ok := b.words[wordPos]
	if !ok {
		return false, nil
	}
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
	return !new(uint256.Int).And(w, mask).IsZero(), nil
}

// FlipTick toggles the initialized bit for tick. Words that become empty
// are dropped from the map.
func (b *Bitmap) FlipTick(tick, tickSpacing int) error {
	if tick%tickSpacing != 0 {
		return ErrTickMisaligned
	}
	wordPos, bitPos := position(compress(tick, tickSpacing))
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))

	w, ok := b.words[wordPos]
	if !ok {
		w = uint256.NewInt(0)
		b.words[wordPos] = w
	}
	w.Xor(w, mask)
	if w.IsZero() {
		delete(b.words, wordPos)
	}
	return nil
}

// NextInitializedTickWithinOneWord scans at most one 256-bit word for an
// initialized tick. With lte it searches at and below tick; otherwise it
// searches strictly above. When no set bit exists in the word it returns
// the tick at the word boundary with initialized=false, and callers loop
// word by word from there.
func (b *Bitmap) NextInitializedTickWithinOneWord(tick, tickSpacing int, lte bool) (next int, initialized bool) {
	compressed := compress(tick, tickSpacing)

	if lte {
		wordPos, bitPos := position(compressed)
		// Bits at and below bitPos.
		mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
		mask.Or(mask, new(uint256.Int).SubUint64(mask, 1))
		masked := new(uint256.Int).And(b.word(wordPos), mask)

		if !masked.IsZero() {
			msb, _ := bitmath.MostSignificantBit(masked)
			return (compressed - int(bitPos) + int(msb)) * tickSpacing, true
		}
		return (compressed - int(bitPos)) * tickSpacing, false
	}

	// Searching right starts from the next compressed tick.
	wordPos, bitPos := position(compressed + 1)
	// Bits at and above bitPos.
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
	mask.SubUint64(mask, 1)
	mask.Not(mask)
	masked := new(uint256.Int).And(b.word(wordPos), mask)

	if !masked.IsZero() {
		lsb, _ := bitmath.LeastSignificantBit(masked)
		return (compressed + 1 + int(lsb) - int(bitPos)) * tickSpacing, true
	}
	return (compressed + 1 + 255 - int(bitPos)) * tickSpacing, false
}
