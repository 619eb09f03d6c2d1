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
	"fmt"

	"github.com/sneller-search/compute-core/heap"
)

// topNState is the monotonically increasing state of a TopN operator:
// NeedsInput -> HasOutput -> Finished.
type topNState int

const (
	topNNeedsInput topNState = iota
	topNHasOutput
	topNFinished
)

// TopN is a bounded priority queue over single-row pages, keyed by a
// Long value at sortChannel. It accepts input until Finish is called,
// then emits its kept rows one page at a time.
//
// The heap keeps exactly the rows a caller asked for and nothing
// else: it is ordered so that its head is always the worst-ranked
// kept row, and a new row displaces the head whenever the new row
// outranks it. For ascending order (want the k smallest) that makes
// the heap a max-heap, head = largest kept; for descending (want the
// k largest) it's a min-heap, head = smallest kept. A well-known
// pitfall here is wiring the comparator backwards — inverting it so
// "ascending" silently keeps the largest k instead of the smallest;
// the less method below is the one place that ordering is decided, and
// TestTopN_AscendingKeepsSmallest pins it down.
type TopN struct {
	sortChannel int
	ascending   bool
	topCount    int

	state topNState
	heap  []*Page
}

// NewTopN constructs a TopN operator over sortChannel, keeping
// topCount rows in ascending or descending order.
func NewTopN(sortChannel int, ascending bool, topCount int) *TopN {
	return &TopN{sortChannel: sortChannel, ascending: ascending, topCount: topCount}
}

func (t *TopN) key(p *Page) int64 {
	return p.GetBlock(t.sortChannel).GetLong(0)
}

// less defines the heap order such that heap[0] is always the next
// row to evict when a better one arrives.
func (t *TopN) less(a, b *Page) bool {
	if t.ascending {
		return t.key(a) > t.key(b) // max-heap: head is the current largest (worst) of the kept smallest set
	}
	return t.key(a) < t.key(b) // min-heap: head is the current smallest (worst) of the kept largest set
}

func (t *TopN) NeedsInput() bool { return t.state == topNNeedsInput }

func (t *TopN) AddInput(p *Page) error {
	if !t.NeedsInput() {
		return fmt.Errorf("%w: AddInput while TopN is not accepting input", ErrContractViolation)
	}
	if t.topCount <= 0 {
		return nil
	}
	for i := 0; i < p.GetPositionCount(); i++ {
		row := p.GetRow(i)
		heap.PushCapped(&t.heap, row, t.topCount, t.less)
	}
	return nil
}

func (t *TopN) Finish() error {
	from := t.state
	switch t.state {
	case topNNeedsInput:
		t.state = topNHasOutput
	default:
		t.state = topNFinished
	}
	trace("topn: finish transitioned state from %d to %d, %d rows kept", from, t.state, len(t.heap))
	return nil
}

func (t *TopN) IsFinished() bool { return t.state == topNFinished }

// GetOutput pops one row-page from the heap per call. Rows come out
// in reverse sorted order — worst-kept first — because each pop
// removes the current head. Callers that need the final sorted order
// must post-sort the emitted pages or reverse them after collection.
func (t *TopN) GetOutput() (*Page, error) {
	if t.state != topNHasOutput {
		return nil, nil
	}
	if len(t.heap) == 0 {
		t.state = topNFinished
		return nil, nil
	}
	row := heap.PopSlice(&t.heap, t.less)
	if len(t.heap) == 0 {
		t.state = topNFinished
	}
	return row, nil
}

func (t *TopN) Close() error { return nil }
