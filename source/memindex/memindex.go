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

// Package memindex is a synthetic, entirely in-memory implementation
// of the source package's reader/query/weight/scorer interfaces, built
// only against that narrow contract (not against any real search
// library) so that source.Operator's scan state machine and slicing
// can be exercised without a real index.
package memindex

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/sneller-search/compute-core/source"
)

// Leaf is one segment of a Reader: a fixed doc count plus an optional
// deleted-docs bitmap.
type Leaf struct {
	ord     int
	maxDoc  int
	deleted *roaring.Bitmap // nil means nothing is deleted
}

// NewLeaf builds a leaf of maxDoc documents with no deletions.
func NewLeaf(ord, maxDoc int) *Leaf { return &Leaf{ord: ord, maxDoc: maxDoc} }

// Delete marks doc as deleted (live in no query result) within this
// leaf.
func (l *Leaf) Delete(doc int) {
	if l.deleted == nil {
		l.deleted = roaring.New()
	}
	l.deleted.Add(uint32(doc))
}

func (l *Leaf) Ord() int     { return l.ord }
func (l *Leaf) MaxDoc() int  { return l.maxDoc }
func (l *Leaf) LiveDocs() *source.LiveDocs {
	if l.deleted == nil || l.deleted.IsEmpty() {
		return nil
	}
	live := roaring.New()
	live.AddRange(0, uint64(l.maxDoc))
	live.AndNot(l.deleted)
	return source.NewLiveDocs(live)
}

// Reader is a synthetic IndexReader over a fixed slice of leaves.
type Reader struct {
	leaves []source.LeafReader
}

// NewReader builds a Reader over leaves, in order.
func NewReader(leaves ...*Leaf) *Reader {
	lr := make([]source.LeafReader, len(leaves))
	for i, l := range leaves {
		lr[i] = l
	}
	return &Reader{leaves: lr}
}

func (r *Reader) Leaves() []source.LeafReader { return r.leaves }

func (r *Reader) MaxDoc() int {
	n := 0
	for _, l := range r.leaves {
		n += l.MaxDoc()
	}
	return n
}

// MatchAllQuery matches every live doc id in every leaf.
type MatchAllQuery struct{}

func (MatchAllQuery) Rewrite(source.IndexReader) (source.Query, error) { return MatchAllQuery{}, nil }

func (MatchAllQuery) CreateWeight(source.IndexReader) (source.Weight, error) {
	return matchAllWeight{}, nil
}

type matchAllWeight struct{}

func (matchAllWeight) BulkScorer(leaf source.LeafReader) (source.BulkScorer, error) {
	if leaf.MaxDoc() == 0 {
		return nil, nil
	}
	return matchAllScorer{}, nil
}

type matchAllScorer struct{}

func (matchAllScorer) Score(live *source.LiveDocs, min, max int, collect source.Collect) (int, error) {
	for doc := min; doc < max; doc++ {
		if live.Get(doc) {
			collect(doc)
		}
	}
	return max, nil
}

// MatchNoneQuery matches nothing in any leaf: every BulkScorer call
// returns a nil scorer, exactly as a real query that provably cannot
// match would.
type MatchNoneQuery struct{}

func (MatchNoneQuery) Rewrite(source.IndexReader) (source.Query, error) { return MatchNoneQuery{}, nil }

func (MatchNoneQuery) CreateWeight(source.IndexReader) (source.Weight, error) {
	return matchNoneWeight{}, nil
}

type matchNoneWeight struct{}

func (matchNoneWeight) BulkScorer(source.LeafReader) (source.BulkScorer, error) { return nil, nil }
