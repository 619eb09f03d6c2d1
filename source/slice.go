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

import "fmt"

// MaxDocsPerSlice and MaxSegmentsPerSlice bound SegmentSlices, copied
// from IndexSearcher's own slicing heuristic.
const (
	MaxDocsPerSlice     = 250_000
	MaxSegmentsPerSlice = 5
)

// partialLeaf is a contiguous doc-id sub-range [MinDoc, MaxDoc) of one
// leaf, the unit DocSlices and SegmentSlices distribute across slices.
type partialLeaf struct {
	leaf           LeafReader
	minDoc, maxDoc int // [minDoc, maxDoc)
}

// DocSlices partitions reader's documents into numSlices contiguous
// ranges of roughly equal size, independent of leaf boundaries. The
// first slice absorbs totalDocs%numSlices extra documents; every other
// slice gets exactly totalDocs/numSlices. A slice may span several
// partial-leaf ranges, and a leaf may be split across consecutive
// slices.
func DocSlices(reader IndexReader, numSlices int) ([][]partialLeaf, error) {
	if numSlices < 1 {
		return nil, fmt.Errorf("source: numSlices must be >= 1, got %d", numSlices)
	}
	totalDocs := reader.MaxDoc()
	normalMaxDocsPerSlice := totalDocs / numSlices
	extraDocsInFirstSlice := totalDocs % numSlices
	maxDocsPerSlice := normalMaxDocsPerSlice + extraDocsInFirstSlice

	var slices [][]partialLeaf
	var current []partialLeaf
	docsInCurrent := 0

	for _, leaf := range reader.Leaves() {
		leafDocs := leaf.MaxDoc()
		min := 0
		for min < leafDocs {
			want := maxDocsPerSlice - docsInCurrent
			avail := leafDocs - min
			use := want
			if avail < use {
				use = avail
			}
			if use <= 0 {
				break
			}
			current = append(current, partialLeaf{leaf: leaf, minDoc: min, maxDoc: min + use})
			min += use
			docsInCurrent += use
			if docsInCurrent == maxDocsPerSlice {
				slices = append(slices, current)
				maxDocsPerSlice = normalMaxDocsPerSlice
				current = nil
				docsInCurrent = 0
			}
		}
	}
	if current != nil {
		slices = append(slices, current)
	}

	if numSlices < totalDocs && len(slices) != numSlices {
		return nil, fmt.Errorf("source: wrong number of slices, expected %d got %d", numSlices, len(slices))
	}
	sum := 0
	for _, s := range slices {
		for _, pl := range s {
			sum += pl.maxDoc - pl.minDoc
		}
	}
	if sum != totalDocs {
		return nil, fmt.Errorf("source: slices cover %d docs, reader has %d", sum, totalDocs)
	}
	return slices, nil
}

// SegmentSlices groups whole leaves into slices bounded by
// MaxDocsPerSlice and MaxSegmentsPerSlice, greedily packing leaves in
// reader order. Unlike DocSlices it never splits a leaf.
func SegmentSlices(reader IndexReader) [][]LeafReader {
	var slices [][]LeafReader
	var current []LeafReader
	docsInCurrent := 0

	flush := func() {
		if len(current) > 0 {
			slices = append(slices, current)
			current = nil
			docsInCurrent = 0
		}
	}
	for _, leaf := range reader.Leaves() {
		n := leaf.MaxDoc()
		if len(current) > 0 && (docsInCurrent+n > MaxDocsPerSlice || len(current) >= MaxSegmentsPerSlice) {
			flush()
		}
		current = append(current, leaf)
		docsInCurrent += n
	}
	flush()
	return slices
}
