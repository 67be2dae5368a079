// Package oracle maintains the ring buffer of price observations used to
// answer time-weighted average price and liquidity queries.
package oracle

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrNotInitialized reports a query against a buffer with no written slot.
	ErrNotInitialized = errors.New("observation buffer not initialized")
	// ErrTooOld reports a query older than the oldest stored observation.
	ErrTooOld = errors.New("target predates oldest observation")
)

// MaxCardinality is the largest number of observations the buffer can hold.
const MaxCardinality = 65535

// Observation is one checkpoint of the running accumulators. Timestamps
// are 32-bit and wrap; all comparisons go through lte.
type Observation struct {
	BlockTimestamp                    uint32
	TickCumulative                    int64
	SecondsPerLiquidityCumulativeX128 *uint256.Int
	Initialized                       bool
}

func zeroObservation() Observation {
	return Observation{SecondsPerLiquidityCumulativeX128: uint256.NewInt(0)}
}

// transform extends last to blockTimestamp given the tick and liquidity
// in effect over the elapsed interval.
func transform(last Observation, blockTimestamp uint32, tick int, liquidity *uint256.Int) Observation {
	delta := blockTimestamp - last.BlockTimestamp

	denom := liquidity
	if denom.IsZero() {
		denom = uint256.NewInt(1)
	}
	splDelta := new(uint256.Int).Lsh(uint256.NewInt(uint64(delta)), 128)
	splDelta.Div(splDelta, denom)

	return Observation{
		BlockTimestamp:                    blockTimestamp,
		TickCumulative:                    last.TickCumulative + int64(tick)*int64(delta),
		SecondsPerLiquidityCumulativeX128: splDelta.Add(splDelta, last.SecondsPerLiquidityCumulativeX128),
		Initialized:                       true,
	}
}

// Buffer is the observation ring. Slots in [cardinality, cardinalityNext)
// have been allocated by Grow but not yet written into rotation.
type Buffer struct {
	obs []Observation
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Initialize writes slot 0 at time and returns the initial cardinality
// and cardinalityNext, both 1.
func (b *Buffer) Initialize(time uint32) (cardinality, cardinalityNext uint16) {
	b.obs = []Observation{{
		BlockTimestamp:                    time,
		SecondsPerLiquidityCumulativeX128: uint256.NewInt(0),
		Initialized:                       true,
	}}
	return 1, 1
}

// Write records an observation for blockTimestamp, at most once per
// timestamp, and returns the updated index and cardinality. The buffer
// only expands into grown slots when the write lands on the last slot of
// the current rotation.
func (b *Buffer) Write(
	index uint16,
	blockTimestamp uint32,
	tick int,
	liquidity *uint256.Int,
	cardinality, cardinalityNext uint16,
) (indexUpdated, cardinalityUpdated uint16) {
	last := b.obs[index]
	if last.BlockTimestamp == blockTimestamp {
		return index, cardinality
	}

	if cardinalityNext > cardinality && index == cardinality-1 {
		cardinalityUpdated = cardinalityNext
	} else {
		cardinalityUpdated = cardinality
	}

	indexUpdated = (index + 1) % cardinalityUpdated
	b.obs[indexUpdated] = transform(last, blockTimestamp, tick, liquidity)
	return indexUpdated, cardinalityUpdated
}

// Grow allocates slots up to next and returns the new cardinalityNext.
// Shrinking or growing an uninitialized buffer is a no-op.
func (b *Buffer) Grow(current, next uint16) uint16 {
	if current == 0 || next <= current {
		return current
	}
	for i := current; i < next; i++ {
		// A nonzero timestamp marks the slot as allocated.
		b.obs = append(b.obs, Observation{
			BlockTimestamp:                    1,
			SecondsPerLiquidityCumulativeX128: uint256.NewInt(0),
		})
	}
	return next
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{obs: make([]Observation, len(b.obs))}
	for i, o := range b.obs {
		o.SecondsPerLiquidityCumulativeX128 = new(uint256.Int).Set(o.SecondsPerLiquidityCumulativeX128)
		c.obs[i] = o
	}
	return c
}

// At returns a copy of the observation in slot i.
func (b *Buffer) At(i uint16) Observation {
	return b.obs[i]
}

// lte reports a <= b in 32-bit time, interpreted relative to time: values
// greater than time belong to the previous epoch.
func lte(time, a, b uint32) bool {
	if a <= time && b <= time {
		return a <= b
	}
	aAdjusted := uint64(a)
	if a <= time {
		aAdjusted += 1 << 32
	}
	bAdjusted := uint64(b)
	if b <= time {
		bAdjusted += 1 << 32
	}
	return aAdjusted <= bAdjusted
}

// binarySearch finds the observations bracketing target. The caller
// guarantees target is within the stored window.
func (b *Buffer) binarySearch(time, target uint32, index, cardinality uint16) (beforeOrAt, atOrAfter Observation) {
	l := (uint32(index) + 1) % uint32(cardinality)
	r := l + uint32(cardinality) - 1

	for {
		i := (l + r) / 2
		beforeOrAt = b.obs[i%uint32(cardinality)]
		if !beforeOrAt.Initialized {
			l = i + 1
			continue
		}
		atOrAfter = b.obs[(i+1)%uint32(cardinality)]

		targetAtOrAfter := lte(time, beforeOrAt.BlockTimestamp, target)
		if targetAtOrAfter && lte(time, target, atOrAfter.BlockTimestamp) {
			return beforeOrAt, atOrAfter
		}
		if !targetAtOrAfter {
			r = i - 1
		} else {
			l = i + 1
		}
	}
}

func (b *Buffer) surroundingObservations(
	time, target uint32,
	tick int,
	index uint16,
	liquidity *uint256.Int,
	cardinality uint16,
) (beforeOrAt, atOrAfter Observation, err error) {
	beforeOrAt = b.obs[index]

	if lte(time, beforeOrAt.BlockTimestamp, target) {
		if beforeOrAt.BlockTimestamp == target {
			return beforeOrAt, zeroObservation(), nil
		}
		return beforeOrAt, transform(beforeOrAt, target, tick, liquidity), nil
	}

	beforeOrAt = b.obs[(index+1)%cardinality]
	if !beforeOrAt.Initialized {
		beforeOrAt = b.obs[0]
	}
	if !lte(time, beforeOrAt.BlockTimestamp, target) {
		return Observation{}, Observation{}, ErrTooOld
	}

	beforeOrAt, atOrAfter = b.binarySearch(time, target, index, cardinality)
	return beforeOrAt, atOrAfter, nil
}

// ObserveSingle returns the accumulator values as of secondsAgo before
// time, interpolating between stored observations when needed.
func (b *Buffer) ObserveSingle(
	time uint32,
	secondsAgo uint32,
	tick int,
	index uint16,
	liquidity *uint256.Int,
	cardinality uint16,
) (tickCumulative int64, secondsPerLiquidityCumulativeX128 *uint256.Int, err error) {
	if cardinality == 0 {
		return 0, nil, ErrNotInitialized
	}

	if secondsAgo == 0 {
		last := b.obs[index]
		if last.BlockTimestamp != time {
			last = transform(last, time, tick, liquidity)
		}
		return last.TickCumulative, new(uint256.Int).Set(last.SecondsPerLiquidityCumulativeX128), nil
	}

	target := time - secondsAgo
	beforeOrAt, atOrAfter, err := b.surroundingObservations(time, target, tick, index, liquidity, cardinality)
	if err != nil {
		return 0, nil, err
	}

	switch {
	case target == beforeOrAt.BlockTimestamp:
		return beforeOrAt.TickCumulative, new(uint256.Int).Set(beforeOrAt.SecondsPerLiquidityCumulativeX128), nil
	case target == atOrAfter.BlockTimestamp:
		return atOrAfter.TickCumulative, new(uint256.Int).Set(atOrAfter.SecondsPerLiquidityCumulativeX128), nil
	default:
		// Linear interpolation between the bracketing observations.
		obsDelta := atOrAfter.BlockTimestamp - beforeOrAt.BlockTimestamp
		targetDelta := target - beforeOrAt.BlockTimestamp

		tickCumulative = beforeOrAt.TickCumulative +
			(atOrAfter.TickCumulative-beforeOrAt.TickCumulative)/int64(obsDelta)*int64(targetDelta)

		splDelta := new(uint256.Int).Sub(
			atOrAfter.SecondsPerLiquidityCumulativeX128, beforeOrAt.SecondsPerLiquidityCumulativeX128)
		splDelta.Mul(splDelta, uint256.NewInt(uint64(targetDelta)))
		splDelta.Div(splDelta, uint256.NewInt(uint64(obsDelta)))
		spl := splDelta.Add(splDelta, beforeOrAt.SecondsPerLiquidityCumulativeX128)
		return tickCumulative, spl, nil
	}
}

// Observe answers a batch of secondsAgo queries against the same state.
func (b *Buffer) Observe(
	time uint32,
	secondsAgos []uint32,
	tick int,
	index uint16,
	liquidity *uint256.Int,
	cardinality uint16,
) (tickCumulatives []int64, secondsPerLiquidityCumulativesX128 []*uint256.Int, err error) {
	if cardinality == 0 {
		return nil, nil, ErrNotInitialized
	}
	tickCumulatives = make([]int64, len(secondsAgos))
	secondsPerLiquidityCumulativesX128 = make([]*uint256.Int, len(secondsAgos))
	for i, secondsAgo := range secondsAgos {
		tickCumulatives[i], secondsPerLiquidityCumulativesX128[i], err =
			b.ObserveSingle(time, secondsAgo, tick, index, liquidity, cardinality)
		if err != nil {
			return nil, nil, err
		}
	}
	return tickCumulatives, secondsPerLiquidityCumulativesX128, nil
}
