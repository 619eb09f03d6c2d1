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
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// EncodeFrame serializes an aggregator-state block for cross-node
// transfer as: u32 position_count | u32 item_size | u32 tag_len |
// tag bytes | bytes[position_count*item_size], little-endian, then
// zstd-compresses the whole frame. This is the wire format spec §6
// names for shipping partial aggregator output between pipelines.
func EncodeFrame(b *Block) ([]byte, error) {
	if b.Kind() != KindAggState {
		return nil, fmt.Errorf("%w: EncodeFrame on %s block", ErrModeMismatch, b.Kind())
	}
	tag := []byte(b.stateTag)
	header := make([]byte, 12+len(tag))
	binary.LittleEndian.PutUint32(header[0:], uint32(b.positionCount))
	binary.LittleEndian.PutUint32(header[4:], uint32(b.itemSize))
	binary.LittleEndian.PutUint32(header[8:], uint32(len(tag)))
	copy(header[12:], tag)

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("aggwire: %w", err)
	}
	defer enc.Close()
	raw := append(header, b.stateBytes...)
	return enc.EncodeAll(raw, nil), nil
}

// DecodeFrame reverses EncodeFrame.
func DecodeFrame(data []byte) (*Block, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("aggwire: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("aggwire: %w", err)
	}
	if len(raw) < 12 {
		return nil, fmt.Errorf("aggwire: frame too short (%d bytes)", len(raw))
	}
	positionCount := int(binary.LittleEndian.Uint32(raw[0:]))
	itemSize := int(binary.LittleEndian.Uint32(raw[4:]))
	tagLen := int(binary.LittleEndian.Uint32(raw[8:]))
	if len(raw) < 12+tagLen {
		return nil, fmt.Errorf("aggwire: frame truncated in tag")
	}
	tag := string(raw[12 : 12+tagLen])
	body := raw[12+tagLen:]
	want := positionCount * itemSize
	if len(body) != want {
		return nil, fmt.Errorf("aggwire: expected %d bytes of state data, got %d", want, len(body))
	}
	cp := make([]byte, len(body))
	copy(cp, body)
	return &Block{kind: KindAggState, positionCount: positionCount, itemSize: itemSize, stateTag: tag, stateBytes: cp}, nil
}
