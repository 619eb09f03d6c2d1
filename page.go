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

import "fmt"

// Page is an ordered tuple of blocks that all share the same position
// count. Pages are value-like and exist only while in flight between
// two operators.
type Page struct {
	positionCount int
	blocks        []*Block
}

// NewPage builds a Page from blocks, all of which must report the
// same PositionCount.
func NewPage(blocks ...*Block) (*Page, error) {
	if len(blocks) == 0 {
		return &Page{}, nil
	}
	n := blocks[0].PositionCount()
	for i, b := range blocks {
		if b.PositionCount() != n {
			return nil, fmt.Errorf("%w: block %d has position count %d, want %d", ErrContractViolation, i, b.PositionCount(), n)
		}
	}
	return &Page{positionCount: n, blocks: blocks}, nil
}

// GetPositionCount returns the page's row count.
func (p *Page) GetPositionCount() int { return p.positionCount }

// GetBlock returns the block at the given channel index.
func (p *Page) GetBlock(channel int) *Block {
	if channel < 0 || channel >= len(p.blocks) {
		panic(fmt.Errorf("%w: channel %d out of range [0,%d)", ErrContractViolation, channel, len(p.blocks)))
	}
	return p.blocks[channel]
}

// ChannelCount returns the number of blocks (columns) in the page.
func (p *Page) ChannelCount() int { return len(p.blocks) }

// GetRow returns a new page of position count 1 formed by extracting
// position i from every block in p.
func (p *Page) GetRow(i int) *Page {
	if i < 0 || i >= p.positionCount {
		panic(fmt.Errorf("%w: row %d out of range [0,%d)", ErrContractViolation, i, p.positionCount))
	}
	return &Page{positionCount: 1, blocks: sliceRow(p.blocks, i)}
}
