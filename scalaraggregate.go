// Copyright (C) 2024 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package compute

import (
	"fmt"
	"math"
)

// forEachFloat folds a primitive or constant block's values to
// float64 via typed fast paths, so scalar aggregators over Int,
// Long, or Double input channels share one fold loop.
func forEachFloat(blk *Block, f func(v float64)) {
	n := blk.PositionCount()
	kind := blk.Kind()
	if kind == KindConstant {
		kind = blk.constKind
	}
	switch kind {
	case KindDouble:
		for i := 0; i < n; i++ {
			f(blk.GetDouble(i))
		}
	case KindLong:
		for i := 0; i < n; i++ {
			f(float64(blk.GetLong(i)))
		}
	case KindInt:
		for i := 0; i < n; i++ {
			f(float64(blk.GetInt(i)))
		}
	default:
		panic(fmt.Errorf("%w: fold on %s block", ErrContractViolation, blk.Kind()))
	}
}

// ScalarAggregator is a single-group aggregate over one input
// channel: Max, Min, Sum, Count, and Avg are all instances of this
// shape, differing only in identity, fold, combine, and finalize.
//
// Aggregators must be associative and commutative across partial
// merges (testable property 1); first/last-style aggregators are out
// of scope.
type ScalarAggregator[S any] struct {
	mode    Mode
	channel int
	state   S
	ser     StateSerializer[S]

	foldRaw func(state S, blk *Block) S
	combine func(a, b S) S
	final   func(s S) *Block
}

// AddRawInput consumes raw values from the aggregator's input
// channel and folds them into the running state.
func (a *ScalarAggregator[S]) AddRawInput(p *Page) error {
	if a.mode.IsInputPartial() {
		return fmt.Errorf("%w: AddRawInput on a %s aggregator", ErrModeMismatch, a.mode)
	}
	a.state = a.foldRaw(a.state, p.GetBlock(a.channel))
	return nil
}

// AddIntermediateInput consumes a block of serialized partial states
// — one per position — deserializing and merging each in turn.
func (a *ScalarAggregator[S]) AddIntermediateInput(b *Block) error {
	for i := 0; i < b.PositionCount(); i++ {
		s, err := DeserializeState(b, i, a.ser)
		if err != nil {
			return err
		}
		a.state = a.combine(a.state, s)
	}
	return nil
}

// EvaluateIntermediate emits a single-position aggregator-state block
// holding the current state's serialization. Valid only when the
// aggregator's mode has partial output.
func (a *ScalarAggregator[S]) EvaluateIntermediate() (*Block, error) {
	if !a.mode.IsOutputPartial() {
		return nil, fmt.Errorf("%w: EvaluateIntermediate on a %s aggregator", ErrModeMismatch, a.mode)
	}
	trace("scalar aggregator mode=%s: emitting intermediate state", a.mode)
	return NewAggStateBlock(a.ser, a.state), nil
}

// EvaluateFinal emits a single-position primitive block carrying the
// finalized scalar. Valid only when the aggregator's mode has final
// output.
func (a *ScalarAggregator[S]) EvaluateFinal() (*Block, error) {
	if a.mode.IsOutputPartial() {
		return nil, fmt.Errorf("%w: EvaluateFinal on a %s aggregator", ErrModeMismatch, a.mode)
	}
	trace("scalar aggregator mode=%s: emitting final value", a.mode)
	return a.final(a.state), nil
}

// State returns the aggregator's current accumulator, chiefly for
// tests.
func (a *ScalarAggregator[S]) State() S { return a.state }

// NewMaxAggregator builds a Max-over-double aggregator. Its identity
// is math.Inf(-1): the original source initializes one of its two
// scalar-max paths to the smallest positive double instead of
// negative infinity, which silently produces wrong results whenever
// every input is negative. Do not repeat that mistake.
func NewMaxAggregator(mode Mode, channel int) *ScalarAggregator[DoubleState] {
	return &ScalarAggregator[DoubleState]{
		mode: mode, channel: channel,
		state: DoubleState{Value: math.Inf(-1)},
		ser:   NewDoubleStateSerializer("max"),
		foldRaw: func(s DoubleState, blk *Block) DoubleState {
			forEachFloat(blk, func(v float64) {
				if v > s.Value {
					s.Value = v
				}
			})
			return s
		},
		combine: func(a, b DoubleState) DoubleState {
			if b.Value > a.Value {
				return b
			}
			return a
		},
		final: func(s DoubleState) *Block { return NewDoubleBlock([]float64{s.Value}) },
	}
}

// NewMinAggregator builds a Min-over-double aggregator with identity
// math.Inf(1).
func NewMinAggregator(mode Mode, channel int) *ScalarAggregator[DoubleState] {
	return &ScalarAggregator[DoubleState]{
		mode: mode, channel: channel,
		state: DoubleState{Value: math.Inf(1)},
		ser:   NewDoubleStateSerializer("min"),
		foldRaw: func(s DoubleState, blk *Block) DoubleState {
			forEachFloat(blk, func(v float64) {
				if v < s.Value {
					s.Value = v
				}
			})
			return s
		},
		combine: func(a, b DoubleState) DoubleState {
			if b.Value < a.Value {
				return b
			}
			return a
		},
		final: func(s DoubleState) *Block { return NewDoubleBlock([]float64{s.Value}) },
	}
}

// NewSumAggregator builds a Sum-over-double aggregator with identity
// 0.
func NewSumAggregator(mode Mode, channel int) *ScalarAggregator[DoubleState] {
	return &ScalarAggregator[DoubleState]{
		mode: mode, channel: channel,
		state: DoubleState{Value: 0},
		ser:   NewDoubleStateSerializer("sum"),
		foldRaw: func(s DoubleState, blk *Block) DoubleState {
			forEachFloat(blk, func(v float64) { s.Value += v })
			return s
		},
		combine: func(a, b DoubleState) DoubleState { return DoubleState{Value: a.Value + b.Value} },
		final:   func(s DoubleState) *Block { return NewDoubleBlock([]float64{s.Value}) },
	}
}

// NewCountAggregator builds a row-count aggregator with identity 0.
// It counts positions in the input channel's block regardless of
// value, so it is also the natural building block for COUNT(*).
func NewCountAggregator(mode Mode, channel int) *ScalarAggregator[LongState] {
	return &ScalarAggregator[LongState]{
		mode: mode, channel: channel,
		state: LongState{Value: 0},
		ser:   NewLongStateSerializer("count"),
		foldRaw: func(s LongState, blk *Block) LongState {
			s.Value += int64(blk.PositionCount())
			return s
		},
		combine: func(a, b LongState) LongState { return LongState{Value: a.Value + b.Value} },
		final:   func(s LongState) *Block { return NewLongBlock([]int64{s.Value}) },
	}
}

// NewAvgAggregator builds an Avg-over-double aggregator backed by a
// (sum, count) pair, identity (0, 0). Its final output is sum/count,
// which is NaN when count is zero — the same behavior a bare float
// division would give.
func NewAvgAggregator(mode Mode, channel int) *ScalarAggregator[SumCountState] {
	return &ScalarAggregator[SumCountState]{
		mode: mode, channel: channel,
		state: SumCountState{},
		ser:   NewSumCountStateSerializer("sumcount"),
		foldRaw: func(s SumCountState, blk *Block) SumCountState {
			forEachFloat(blk, func(v float64) {
				s.Sum += v
				s.Count++
			})
			return s
		},
		combine: func(a, b SumCountState) SumCountState {
			return SumCountState{Sum: a.Sum + b.Sum, Count: a.Count + b.Count}
		},
		final: func(s SumCountState) *Block { return NewDoubleBlock([]float64{s.Sum / float64(s.Count)}) },
	}
}
