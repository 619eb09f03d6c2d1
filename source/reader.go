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

// Package source turns an index reader and a query into a stream of
// pages of matching document ids, and partitions that scan into
// independent slices of work for parallel pipelines. It is grounded on
// a narrow reading of Lucene's IndexSearcher/BulkScorer contract: a
// reader exposes leaves, a query compiles to a Weight against a
// reader, and a Weight yields one BulkScorer per leaf.
package source

import "github.com/RoaringBitmap/roaring/v2"

// IndexReader enumerates the leaves (segments) of a shard.
type IndexReader interface {
	// Leaves returns the reader's segments in a stable order. The
	// returned slice must not be mutated by callers.
	Leaves() []LeafReader
	// MaxDoc is the sum of every leaf's MaxDoc: the shard's total
	// document count, including any docs marked deleted by a leaf's
	// LiveDocs.
	MaxDoc() int
}

// LeafReader is a single segment within a shard.
type LeafReader interface {
	// Ord is the leaf's 0-based ordinal within its reader.
	Ord() int
	// MaxDoc is the number of doc ids in this leaf, [0, MaxDoc).
	MaxDoc() int
	// LiveDocs reports which doc ids in [0, MaxDoc) are live (not
	// deleted). A nil return means every doc id is live.
	LiveDocs() *LiveDocs
}

// LiveDocs wraps a roaring bitmap of live (non-deleted) doc ids within
// a single leaf.
type LiveDocs struct {
	bits *roaring.Bitmap
}

// NewLiveDocs wraps an existing roaring bitmap of live doc ids.
func NewLiveDocs(bits *roaring.Bitmap) *LiveDocs {
	return &LiveDocs{bits: bits}
}

// Get reports whether doc is live.
func (l *LiveDocs) Get(doc int) bool {
	if l == nil || l.bits == nil {
		return true
	}
	return l.bits.Contains(uint32(doc))
}

// Query is an opaque, rewriteable search criterion. The source
// operator only ever rewrites a query and turns it into a Weight; it
// never inspects a query's internals.
type Query interface {
	// Rewrite returns an equivalent, possibly simplified query bound
	// to reader. Implementations that need no rewriting may return
	// themselves.
	Rewrite(reader IndexReader) (Query, error)
	// CreateWeight compiles the query into a Weight against reader,
	// scored in COMPLETE_NO_SCORES mode: the source operator never
	// consumes relevance scores, only matching doc ids.
	CreateWeight(reader IndexReader) (Weight, error)
}

// Weight is a query already rewritten and bound to a reader; it
// produces one BulkScorer per leaf it is asked to scan.
type Weight interface {
	// BulkScorer returns a scorer for leaf, or nil if the query
	// provably matches nothing in that leaf.
	BulkScorer(leaf LeafReader) (BulkScorer, error)
}

// Collect receives matching doc ids in ascending order during a
// BulkScorer.Score call.
type Collect func(doc int)

// BulkScorer incrementally matches doc ids within a single leaf.
type BulkScorer interface {
	// Score invokes collect once per matching, live doc id in
	// [min, max), then returns the next unprocessed doc id — either
	// max (if the range is now exhausted) or, for scorers that choose
	// to stop early, some doc id less than max that a subsequent call
	// should resume from.
	Score(live *LiveDocs, min, max int, collect Collect) (next int, err error)
}
