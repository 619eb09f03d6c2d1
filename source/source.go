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

package source

import (
	"fmt"

	compute "github.com/sneller-search/compute-core"
)

// DefaultPageSize is derived from a 16 KiB byte budget of 4-byte doc
// ids: 16384/4 = 4096 document ids per page.
const DefaultPageSize = 16384 / 4

// Operator scans an index reader against a query, one partial-leaf at
// a time, and emits pages of matching doc ids. It implements
// compute.Operator and never accepts input.
//
// An Operator is constructed either directly over a reader and query
// (weight unresolved) or, internally, over an already-resolved weight
// and a fixed list of partial leaves — the shape DocSlice/SegmentSlice
// hand out to each parallel pipeline.
type Operator struct {
	reader  IndexReader
	query   Query
	shardID int32

	maxPageSize int
	minPageSize int

	weight Weight
	leaves []partialLeaf

	currentLeaf int
	scorer      BulkScorer
	scorerPos   int

	page    []int32
	pagePos int
}

// NewOperator builds a source operator over reader's entire doc range,
// scanning it directly (no slicing) with the default page size.
func NewOperator(reader IndexReader, shardID int32, query Query) *Operator {
	return NewOperatorSized(reader, shardID, query, DefaultPageSize)
}

// NewOperatorSized is NewOperator with an explicit max page size.
func NewOperatorSized(reader IndexReader, shardID int32, query Query, maxPageSize int) *Operator {
	var leaves []partialLeaf
	for _, l := range reader.Leaves() {
		leaves = append(leaves, partialLeaf{leaf: l, minDoc: 0, maxDoc: l.MaxDoc()})
	}
	return &Operator{
		reader:      reader,
		query:       query,
		shardID:     shardID,
		maxPageSize: maxPageSize,
		minPageSize: maxPageSize / 2,
		leaves:      leaves,
		page:        make([]int32, maxPageSize),
	}
}

// DocSlice partitions this operator's reader into n roughly-equal,
// contiguous document ranges (see DocSlices) and returns one new
// Operator per slice, all sharing a single realized Weight. It is a
// one-shot partition: calling DocSlice or SegmentSlice a second time,
// on this operator or any operator it already produced, fails.
func (o *Operator) DocSlice(n int) ([]*Operator, error) {
	if o.weight != nil {
		return nil, fmt.Errorf("%w: source operator already sliced or scanned", compute.ErrContractViolation)
	}
	if err := o.realizeWeight(); err != nil {
		return nil, err
	}

	slices, err := DocSlices(o.reader, n)
	if err != nil {
		return nil, err
	}
	out := make([]*Operator, len(slices))
	for i, s := range slices {
		out[i] = o.withLeaves(s)
	}
	if compute.Trace != nil {
		compute.Trace("source shard=%d: doc-sliced into %d slices", o.shardID, len(out))
	}
	return out, nil
}

// SegmentSlice groups this operator's reader into whole-leaf slices
// (see SegmentSlices) and returns one new Operator per slice, sharing
// a single realized Weight. Subject to the same one-shot restriction
// as DocSlice.
func (o *Operator) SegmentSlice() ([]*Operator, error) {
	if o.weight != nil {
		return nil, fmt.Errorf("%w: source operator already sliced or scanned", compute.ErrContractViolation)
	}
	if err := o.realizeWeight(); err != nil {
		return nil, err
	}

	groups := SegmentSlices(o.reader)
	out := make([]*Operator, len(groups))
	for i, leaves := range groups {
		pls := make([]partialLeaf, len(leaves))
		for j, l := range leaves {
			pls[j] = partialLeaf{leaf: l, minDoc: 0, maxDoc: l.MaxDoc()}
		}
		out[i] = o.withLeaves(pls)
	}
	if compute.Trace != nil {
		compute.Trace("source shard=%d: segment-sliced into %d slices", o.shardID, len(out))
	}
	return out, nil
}

func (o *Operator) withLeaves(leaves []partialLeaf) *Operator {
	return &Operator{
		shardID:     o.shardID,
		maxPageSize: o.maxPageSize,
		minPageSize: o.minPageSize,
		weight:      o.weight,
		leaves:      leaves,
		page:        make([]int32, o.maxPageSize),
	}
}

func (o *Operator) realizeWeight() error {
	if o.weight != nil {
		return nil
	}
	q, err := o.query.Rewrite(o.reader)
	if err != nil {
		return fmt.Errorf("%w: rewrite: %v", compute.ErrReaderIO, err)
	}
	w, err := q.CreateWeight(o.reader)
	if err != nil {
		return fmt.Errorf("%w: create weight: %v", compute.ErrReaderIO, err)
	}
	o.weight = w
	return nil
}

// NeedsInput always reports false: a source operator never accepts
// input from upstream.
func (o *Operator) NeedsInput() bool { return false }

// AddInput is a contract violation for a source operator.
func (o *Operator) AddInput(*compute.Page) error {
	return fmt.Errorf("%w: AddInput on a source operator", compute.ErrContractViolation)
}

// Finish is a contract violation for a source operator: it finishes
// on its own once the scan is exhausted.
func (o *Operator) Finish() error {
	return fmt.Errorf("%w: Finish on a source operator", compute.ErrContractViolation)
}

// IsFinished reports whether every partial leaf has been scanned.
func (o *Operator) IsFinished() bool { return o.currentLeaf >= len(o.leaves) }

// GetOutput advances the scan by as much as one page's worth of work
// and returns a page if one became ready, following this state
// machine: resolve the weight, obtain a bulk
// scorer for the current partial leaf (skipping leaves with no
// matches at all), collect doc ids until the page is at least
// minPageSize full or the leaf is exhausted, then flush.
func (o *Operator) GetOutput() (*compute.Page, error) {
	if o.IsFinished() {
		return nil, nil
	}
	if err := o.realizeWeight(); err != nil {
		return nil, err
	}

	for o.scorer == nil {
		pl := o.leaves[o.currentLeaf]
		scorer, err := o.weight.BulkScorer(pl.leaf)
		if err != nil {
			return nil, fmt.Errorf("%w: bulk scorer: %v", compute.ErrReaderIO, err)
		}
		if scorer == nil {
			o.currentLeaf++
			if o.IsFinished() {
				return nil, nil
			}
			continue
		}
		o.scorer = scorer
		o.scorerPos = pl.minDoc
	}

	pl := o.leaves[o.currentLeaf]
	limit := o.scorerPos + (o.maxPageSize - o.pagePos)
	if limit > pl.maxDoc {
		limit = pl.maxDoc
	}
	next, err := o.scorer.Score(pl.leaf.LiveDocs(), o.scorerPos, limit, func(doc int) {
		o.page[o.pagePos] = int32(doc)
		o.pagePos++
	})
	if err != nil {
		return nil, fmt.Errorf("%w: score: %v", compute.ErrReaderIO, err)
	}
	o.scorerPos = next

	var out *compute.Page
	leafExhausted := o.scorerPos >= pl.maxDoc
	if o.pagePos >= o.minPageSize || leafExhausted {
		docs := make([]int32, o.pagePos)
		copy(docs, o.page[:o.pagePos])
		p, err := compute.NewPage(
			compute.NewIntBlock(docs),
			compute.NewConstantInt(int32(pl.leaf.Ord()), o.pagePos),
			compute.NewConstantInt(o.shardID, o.pagePos),
		)
		if err != nil {
			return nil, err
		}
		out = p
		if compute.Trace != nil {
			compute.Trace("source shard=%d: flushed page of %d docs from leaf %d (exhausted=%v)", o.shardID, p.GetPositionCount(), pl.leaf.Ord(), leafExhausted)
		}
		o.pagePos = 0
	}

	if leafExhausted {
		o.currentLeaf++
		o.scorer = nil
		o.scorerPos = 0
	}
	return out, nil
}

// Close releases the operator's resources. A source operator holds
// nothing beyond Go-managed memory.
func (o *Operator) Close() error { return nil }
