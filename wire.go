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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pierrec/lz4/v4"
)

// blockWireKind mirrors Kind but is pinned to stable wire values
// independent of any future reordering of the Kind enum.
type blockWireKind uint8

const (
	wireInt blockWireKind = iota
	wireLong
	wireDouble
	wireConstInt
	wireConstLong
	wireConstDouble
)

// EncodePage serializes a page's blocks (Int, Long, Double, and
// Constant variants of each) into a single lz4-compressed buffer.
// This is the transport path for row pages moving between
// independently scheduled pipelines — for example, shipping a
// partial-output top-N operator's kept rows downstream for a final
// merge — as distinct from EncodeFrame/DecodeFrame's aggregator-state
// path in aggwire.go.
func EncodePage(p *Page) ([]byte, error) {
	var raw bytes.Buffer
	n := p.ChannelCount()
	writeU32(&raw, uint32(p.GetPositionCount()))
	writeU32(&raw, uint32(n))
	for c := 0; c < n; c++ {
		if err := encodeBlock(&raw, p.GetBlock(c)); err != nil {
			return nil, fmt.Errorf("wire: channel %d: %w", c, err)
		}
	}

	compressed := make([]byte, lz4.CompressBlockBound(raw.Len()))
	var compressor lz4.Compressor
	n2, err := compressor.CompressBlock(raw.Bytes(), compressed)
	if err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	out := make([]byte, 4, 4+n2)
	binary.LittleEndian.PutUint32(out, uint32(raw.Len()))
	out = append(out, compressed[:n2]...)
	return out, nil
}

// DecodePage reverses EncodePage.
func DecodePage(data []byte) (*Page, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("wire: page frame too short")
	}
	rawLen := int(binary.LittleEndian.Uint32(data))
	raw := make([]byte, rawLen)
	n, err := lz4.UncompressBlock(data[4:], raw)
	if err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	buf := bytes.NewReader(raw[:n])

	positionCount, err := readU32(buf)
	if err != nil {
		return nil, err
	}
	channels, err := readU32(buf)
	if err != nil {
		return nil, err
	}
	blocks := make([]*Block, channels)
	for c := range blocks {
		b, err := decodeBlock(buf)
		if err != nil {
			return nil, fmt.Errorf("wire: channel %d: %w", c, err)
		}
		if uint32(b.PositionCount()) != positionCount {
			return nil, fmt.Errorf("wire: channel %d has %d positions, frame declared %d", c, b.PositionCount(), positionCount)
		}
		blocks[c] = b
	}
	return NewPage(blocks...)
}

func encodeBlock(w *bytes.Buffer, b *Block) error {
	kind := b.Kind()
	n := b.PositionCount()
	switch kind {
	case KindInt:
		w.WriteByte(byte(wireInt))
		writeU32(w, uint32(n))
		for i := 0; i < n; i++ {
			writeU32(w, uint32(b.GetInt(i)))
		}
	case KindLong:
		w.WriteByte(byte(wireLong))
		writeU32(w, uint32(n))
		for i := 0; i < n; i++ {
			writeU64(w, uint64(b.GetLong(i)))
		}
	case KindDouble:
		w.WriteByte(byte(wireDouble))
		writeU32(w, uint32(n))
		for i := 0; i < n; i++ {
			writeU64(w, math.Float64bits(b.GetDouble(i)))
		}
	case KindConstant:
		switch b.constKind {
		case KindInt:
			w.WriteByte(byte(wireConstInt))
			writeU32(w, uint32(n))
			writeU32(w, uint32(b.constInt))
		case KindLong:
			w.WriteByte(byte(wireConstLong))
			writeU32(w, uint32(n))
			writeU64(w, uint64(b.constLong))
		default:
			w.WriteByte(byte(wireConstDouble))
			writeU32(w, uint32(n))
			writeU64(w, math.Float64bits(b.constDouble))
		}
	default:
		return fmt.Errorf("%w: cannot encode %s block over the raw page wire; use EncodeFrame", ErrModeMismatch, kind)
	}
	return nil
}

func decodeBlock(r *bytes.Reader) (*Block, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	switch blockWireKind(tag) {
	case wireInt:
		vals := make([]int32, n)
		for i := range vals {
			u, err := readU32(r)
			if err != nil {
				return nil, err
			}
			vals[i] = int32(u)
		}
		return NewIntBlock(vals), nil
	case wireLong:
		vals := make([]int64, n)
		for i := range vals {
			u, err := readU64(r)
			if err != nil {
				return nil, err
			}
			vals[i] = int64(u)
		}
		return NewLongBlock(vals), nil
	case wireDouble:
		vals := make([]float64, n)
		for i := range vals {
			u, err := readU64(r)
			if err != nil {
				return nil, err
			}
			vals[i] = math.Float64frombits(u)
		}
		return NewDoubleBlock(vals), nil
	case wireConstInt:
		u, err := readU32(r)
		if err != nil {
			return nil, err
		}
		return NewConstantInt(int32(u), int(n)), nil
	case wireConstLong:
		u, err := readU64(r)
		if err != nil {
			return nil, err
		}
		return NewConstantLong(int64(u), int(n)), nil
	case wireConstDouble:
		u, err := readU64(r)
		if err != nil {
			return nil, err
		}
		return NewConstantDouble(math.Float64frombits(u), int(n)), nil
	default:
		return nil, fmt.Errorf("wire: unknown block tag %d", tag)
	}
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeU64(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
