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
	"encoding/binary"
	"math"
)

// DoubleState is the accumulator for Max/Min/Sum-over-doubles.
type DoubleState struct {
	Value float64
}

// doubleStateSerializer serializes DoubleState as 8 little-endian
// bytes, the IEEE-754 bit pattern of Value.
type doubleStateSerializer struct{ tag string }

// NewDoubleStateSerializer returns a StateSerializer for DoubleState
// tagged for wire identification.
func NewDoubleStateSerializer(tag string) StateSerializer[DoubleState] {
	return doubleStateSerializer{tag: tag}
}

func (doubleStateSerializer) Size() int { return 8 }
func (s doubleStateSerializer) Tag() string { return s.tag }

func (doubleStateSerializer) Serialize(s DoubleState, buf []byte, offset int) int {
	binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(s.Value))
	return 8
}

func (doubleStateSerializer) Deserialize(buf []byte, offset int) DoubleState {
	bits := binary.LittleEndian.Uint64(buf[offset:])
	return DoubleState{Value: math.Float64frombits(bits)}
}

// LongState is the accumulator for Count and Sum/Min/Max-over-longs.
type LongState struct {
	Value int64
}

type longStateSerializer struct{ tag string }

// NewLongStateSerializer returns a StateSerializer for LongState
// tagged for wire identification.
func NewLongStateSerializer(tag string) StateSerializer[LongState] {
	return longStateSerializer{tag: tag}
}

func (longStateSerializer) Size() int       { return 8 }
func (s longStateSerializer) Tag() string   { return s.tag }

func (longStateSerializer) Serialize(s LongState, buf []byte, offset int) int {
	binary.LittleEndian.PutUint64(buf[offset:], uint64(s.Value))
	return 8
}

func (longStateSerializer) Deserialize(buf []byte, offset int) LongState {
	return LongState{Value: int64(binary.LittleEndian.Uint64(buf[offset:]))}
}

// SumCountState is the (sum, count) pair backing Avg.
type SumCountState struct {
	Sum   float64
	Count int64
}

type sumCountStateSerializer struct{ tag string }

// NewSumCountStateSerializer returns a StateSerializer for
// SumCountState: 8 bytes of sum followed by 8 bytes of count, both
// little-endian, no padding.
func NewSumCountStateSerializer(tag string) StateSerializer[SumCountState] {
	return sumCountStateSerializer{tag: tag}
}

func (sumCountStateSerializer) Size() int     { return 16 }
func (s sumCountStateSerializer) Tag() string { return s.tag }

func (sumCountStateSerializer) Serialize(s SumCountState, buf []byte, offset int) int {
	binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(s.Sum))
	binary.LittleEndian.PutUint64(buf[offset+8:], uint64(s.Count))
	return 16
}

func (sumCountStateSerializer) Deserialize(buf []byte, offset int) SumCountState {
	sum := math.Float64frombits(binary.LittleEndian.Uint64(buf[offset:]))
	count := int64(binary.LittleEndian.Uint64(buf[offset+8:]))
	return SumCountState{Sum: sum, Count: count}
}
