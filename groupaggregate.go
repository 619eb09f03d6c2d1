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

	"golang.org/x/exp/slices"
)

// floatAt extracts the value at pos from blk as a float64 via the
// same typed fast paths forEachFloat uses for whole-block folds.
func floatAt(blk *Block, pos int) float64 {
	kind := blk.Kind()
	if kind == KindConstant {
		kind = blk.constKind
	}
	switch kind {
	case KindDouble:
		return blk.GetDouble(pos)
	case KindLong:
		return float64(blk.GetLong(pos))
	case KindInt:
		return float64(blk.GetInt(pos))
	default:
		panic(fmt.Errorf("%w: floatAt on %s block", ErrContractViolation, blk.Kind()))
	}
}

// GroupingAggregator wraps a grouping function that holds one state
// slot per group id: a dense Vec<State> indexed by group id, grown on
// demand. Seeing group id g ensures slots 0..=g exist, new slots
// initialized to the aggregate's identity.
type GroupingAggregator[S any] struct {
	mode    Mode
	channel int
	identity S
	ser     StateSerializer[S]

	foldValue   func(s S, blk *Block, pos int) S
	combine     func(a, b S) S
	finalizeAll func(states []S) *Block

	states []S
}

func (g *GroupingAggregator[S]) ensure(id int) {
	if id < len(g.states) {
		return
	}
	g.states = slices.Grow(g.states, id+1-len(g.states))
	for len(g.states) <= id {
		g.states = append(g.states, g.identity)
	}
}

// ProcessPage merges one page's rows into their groups. groupIDs
// pairs positionally with page: if the aggregator's input is partial,
// the value channel is a state block merged via the serializer; if
// raw, it is a plain value block folded directly.
func (g *GroupingAggregator[S]) ProcessPage(groupIDs *Block, page *Page) error {
	n := groupIDs.PositionCount()
	if page.GetPositionCount() != n {
		return fmt.Errorf("%w: group-id block has %d positions, page has %d", ErrContractViolation, n, page.GetPositionCount())
	}
	if g.mode.IsInputPartial() {
		stateBlk := page.GetBlock(g.channel)
		for i := 0; i < n; i++ {
			id := int(groupIDs.GetLong(i))
			g.ensure(id)
			s, err := DeserializeState(stateBlk, i, g.ser)
			if err != nil {
				return err
			}
			g.states[id] = g.combine(g.states[id], s)
		}
		return nil
	}
	valBlk := page.GetBlock(g.channel)
	for i := 0; i < n; i++ {
		id := int(groupIDs.GetLong(i))
		g.ensure(id)
		g.states[id] = g.foldValue(g.states[id], valBlk, i)
	}
	return nil
}

// Evaluate emits either an intermediate block (positions = groups,
// values = serialized states) or a final block (positions = groups,
// values = finalized scalars), governed by the mode's output side.
func (g *GroupingAggregator[S]) Evaluate() (*Block, error) {
	if g.mode.IsOutputPartial() {
		b := NewStateBlockBuilder(g.ser)
		for _, s := range g.states {
			if err := b.Append(s); err != nil {
				return nil, err
			}
		}
		return b.Build(), nil
	}
	return g.finalizeAll(g.states), nil
}

// GroupCount reports how many group slots currently exist.
func (g *GroupingAggregator[S]) GroupCount() int { return len(g.states) }

// NewGroupingMaxAggregator builds a per-group Max-over-double
// aggregator. Identity is math.Inf(-1), never Double.MIN_VALUE (see
// NewMaxAggregator's doc comment).
func NewGroupingMaxAggregator(mode Mode, channel int) *GroupingAggregator[DoubleState] {
	return &GroupingAggregator[DoubleState]{
		mode: mode, channel: channel,
		identity: DoubleState{Value: math.Inf(-1)},
		ser:      NewDoubleStateSerializer("max"),
		foldValue: func(s DoubleState, blk *Block, pos int) DoubleState {
			v := floatAt(blk, pos)
			if v > s.Value {
				s.Value = v
			}
			return s
		},
		combine: func(a, b DoubleState) DoubleState {
			if b.Value > a.Value {
				return b
			}
			return a
		},
		finalizeAll: func(states []DoubleState) *Block {
			out := make([]float64, len(states))
			for i, s := range states {
				out[i] = s.Value
			}
			return NewDoubleBlock(out)
		},
	}
}

// NewGroupingMinAggregator builds a per-group Min-over-double
// aggregator with identity math.Inf(1).
func NewGroupingMinAggregator(mode Mode, channel int) *GroupingAggregator[DoubleState] {
	return &GroupingAggregator[DoubleState]{
		mode: mode, channel: channel,
		identity: DoubleState{Value: math.Inf(1)},
		ser:      NewDoubleStateSerializer("min"),
		foldValue: func(s DoubleState, blk *Block, pos int) DoubleState {
			v := floatAt(blk, pos)
			if v < s.Value {
				s.Value = v
			}
			return s
		},
		combine: func(a, b DoubleState) DoubleState {
			if b.Value < a.Value {
				return b
			}
			return a
		},
		finalizeAll: func(states []DoubleState) *Block {
			out := make([]float64, len(states))
			for i, s := range states {
				out[i] = s.Value
			}
			return NewDoubleBlock(out)
		},
	}
}

// NewGroupingSumAggregator builds a per-group Sum-over-double
// aggregator with identity 0.
func NewGroupingSumAggregator(mode Mode, channel int) *GroupingAggregator[DoubleState] {
	return &GroupingAggregator[DoubleState]{
		mode: mode, channel: channel,
		identity: DoubleState{Value: 0},
		ser:      NewDoubleStateSerializer("sum"),
		foldValue: func(s DoubleState, blk *Block, pos int) DoubleState {
			s.Value += floatAt(blk, pos)
			return s
		},
		combine: func(a, b DoubleState) DoubleState { return DoubleState{Value: a.Value + b.Value} },
		finalizeAll: func(states []DoubleState) *Block {
			out := make([]float64, len(states))
			for i, s := range states {
				out[i] = s.Value
			}
			return NewDoubleBlock(out)
		},
	}
}

// NewGroupingCountAggregator builds a per-group row-count aggregator
// with identity 0.
func NewGroupingCountAggregator(mode Mode, channel int) *GroupingAggregator[LongState] {
	return &GroupingAggregator[LongState]{
		mode: mode, channel: channel,
		identity: LongState{Value: 0},
		ser:      NewLongStateSerializer("count"),
		foldValue: func(s LongState, blk *Block, pos int) LongState {
			s.Value++
			return s
		},
		combine: func(a, b LongState) LongState { return LongState{Value: a.Value + b.Value} },
		finalizeAll: func(states []LongState) *Block {
			out := make([]int64, len(states))
			for i, s := range states {
				out[i] = s.Value
			}
			return NewLongBlock(out)
		},
	}
}

// NewGroupingAvgAggregator builds a per-group Avg-over-double
// aggregator backed by a (sum, count) pair, identity (0, 0).
func NewGroupingAvgAggregator(mode Mode, channel int) *GroupingAggregator[SumCountState] {
	return &GroupingAggregator[SumCountState]{
		mode: mode, channel: channel,
		identity: SumCountState{},
		ser:      NewSumCountStateSerializer("sumcount"),
		foldValue: func(s SumCountState, blk *Block, pos int) SumCountState {
			s.Sum += floatAt(blk, pos)
			s.Count++
			return s
		},
		combine: func(a, b SumCountState) SumCountState {
			return SumCountState{Sum: a.Sum + b.Sum, Count: a.Count + b.Count}
		},
		finalizeAll: func(states []SumCountState) *Block {
			out := make([]float64, len(states))
			for i, s := range states {
				out[i] = s.Sum / float64(s.Count)
			}
			return NewDoubleBlock(out)
		},
	}
}
