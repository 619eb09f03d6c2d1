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
	"testing"
)

// fakeLeaf and fakeReader are minimal, no-deletions stand-ins for
// memindex.Leaf/Reader, used here instead of the memindex package to
// avoid an import cycle (memindex imports source).
type fakeLeaf struct {
	ord    int
	maxDoc int
}

func (l *fakeLeaf) Ord() int            { return l.ord }
func (l *fakeLeaf) MaxDoc() int         { return l.maxDoc }
func (l *fakeLeaf) LiveDocs() *LiveDocs { return nil }

func newFakeLeaf(ord, maxDoc int) *fakeLeaf { return &fakeLeaf{ord: ord, maxDoc: maxDoc} }

type fakeReader struct {
	leaves []LeafReader
}

func newFakeReader(leaves ...*fakeLeaf) *fakeReader {
	r := &fakeReader{}
	for _, l := range leaves {
		r.leaves = append(r.leaves, l)
	}
	return r
}

func (r *fakeReader) Leaves() []LeafReader { return r.leaves }
func (r *fakeReader) MaxDoc() int {
	n := 0
	for _, l := range r.leaves {
		n += l.MaxDoc()
	}
	return n
}

func TestDocSlices_ExtraDocsGoToFirstSlice(t *testing.T) {
	reader := newFakeReader(newFakeLeaf(0, 1000))
	slices, err := DocSlices(reader, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(slices) != 3 {
		t.Fatalf("got %d slices, want 3", len(slices))
	}
	sizes := make([]int, len(slices))
	for i, s := range slices {
		for _, pl := range s {
			sizes[i] += pl.maxDoc - pl.minDoc
		}
	}
	want := []int{334, 333, 333}
	for i, w := range want {
		if sizes[i] != w {
			t.Fatalf("slice sizes = %v, want %v", sizes, want)
		}
	}
}

func TestDocSlices_MoreSlicesThanDocsIsNotAnError(t *testing.T) {
	reader := newFakeReader(newFakeLeaf(0, 2))
	slices, err := DocSlices(reader, 5)
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, s := range slices {
		for _, pl := range s {
			total += pl.maxDoc - pl.minDoc
		}
	}
	if total != 2 {
		t.Fatalf("total docs = %d, want 2", total)
	}
}

func TestSegmentSlices_BoundsBySegmentCount(t *testing.T) {
	leaves := make([]*fakeLeaf, MaxSegmentsPerSlice+2)
	for i := range leaves {
		leaves[i] = newFakeLeaf(i, 10)
	}
	reader := newFakeReader(leaves...)
	slices := SegmentSlices(reader)
	if len(slices) != 2 {
		t.Fatalf("got %d slices, want 2 (%d leaves bounded at %d per slice)", len(slices), len(leaves), MaxSegmentsPerSlice)
	}
	if len(slices[0]) != MaxSegmentsPerSlice {
		t.Fatalf("first slice has %d leaves, want %d", len(slices[0]), MaxSegmentsPerSlice)
	}
}

func TestSegmentSlices_BoundsByDocCount(t *testing.T) {
	reader := newFakeReader(
		newFakeLeaf(0, MaxDocsPerSlice-1),
		newFakeLeaf(1, 2),
	)
	slices := SegmentSlices(reader)
	if len(slices) != 2 {
		t.Fatalf("got %d slices, want 2 (second leaf would overflow MaxDocsPerSlice)", len(slices))
	}
}
