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
	"sort"
	"testing"
)

func collectTopN(t *testing.T, tn *TopN, input []int64) []int64 {
	t.Helper()
	for _, v := range input {
		p := mustPage(t, NewLongBlock([]int64{v}))
		if err := tn.AddInput(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := tn.Finish(); err != nil {
		t.Fatal(err)
	}
	var out []int64
	for {
		p, err := tn.GetOutput()
		if err != nil {
			t.Fatal(err)
		}
		if p == nil {
			break
		}
		out = append(out, p.GetBlock(0).GetLong(0))
	}
	if !tn.IsFinished() {
		t.Fatal("TopN must be finished once its heap is drained")
	}
	return out
}

func TestTopN_DescendingKeepsLargest(t *testing.T) {
	tn := NewTopN(0, false, 3)
	got := collectTopN(t, tn, []int64{4, 1, 9, 2, 7, 7, 3})
	sort.Slice(got, func(i, j int) bool { return got[i] > got[j] })
	want := []int64{9, 7, 7}
	if len(got) != len(want) {
		t.Fatalf("got %v, want multiset %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want multiset %v", got, want)
		}
	}
}

// TestTopN_AscendingKeepsSmallest pins down the comparator direction
// the source material gets backwards: ascending top-N must keep the k
// smallest values, not the k largest.
func TestTopN_AscendingKeepsSmallest(t *testing.T) {
	tn := NewTopN(0, true, 3)
	got := collectTopN(t, tn, []int64{4, 1, 9, 2, 7, 7, 3})
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTopN_TopCountZeroEmitsNothing(t *testing.T) {
	tn := NewTopN(0, false, 0)
	got := collectTopN(t, tn, []int64{1, 2, 3})
	if len(got) != 0 {
		t.Fatalf("got %v, want no rows", got)
	}
}

func TestTopN_FewerRowsThanCapacity(t *testing.T) {
	tn := NewTopN(0, false, 5)
	got := collectTopN(t, tn, []int64{3, 1})
	sort.Slice(got, func(i, j int) bool { return got[i] > got[j] })
	want := []int64{3, 1}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTopN_AddInputAfterFinishIsContractViolation(t *testing.T) {
	tn := NewTopN(0, false, 2)
	if err := tn.Finish(); err != nil {
		t.Fatal(err)
	}
	err := tn.AddInput(mustPage(t, NewLongBlock([]int64{1})))
	if err == nil {
		t.Fatal("expected contract violation adding input after Finish")
	}
}
