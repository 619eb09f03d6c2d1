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

package runner

import (
	"context"
	"testing"

	compute "github.com/sneller-search/compute-core"
	"github.com/sneller-search/compute-core/source"
	"github.com/sneller-search/compute-core/source/memindex"
)

// countingStage wraps a RawToPartial count aggregator into a
// pipeline-breaker compute.Operator: Finish evaluates it and queues the single
// resulting partial-state page for GetOutput.
type countingStage struct {
	agg      *compute.ScalarAggregator[compute.LongState]
	finished bool
	pending  *compute.Page
}

func newCountingStage() *countingStage {
	return &countingStage{agg: compute.NewCountAggregator(compute.RawToPartial, 0)}
}

func (c *countingStage) NeedsInput() bool { return !c.finished }

func (c *countingStage) AddInput(p *compute.Page) error { return c.agg.AddRawInput(p) }

func (c *countingStage) Finish() error {
	out, err := c.agg.EvaluateIntermediate()
	if err != nil {
		return err
	}
	p, err := compute.NewPage(out)
	if err != nil {
		return err
	}
	c.pending = p
	c.finished = true
	return nil
}

func (c *countingStage) IsFinished() bool { return c.finished && c.pending == nil }

func (c *countingStage) GetOutput() (*compute.Page, error) {
	p := c.pending
	c.pending = nil
	return p, nil
}

func (c *countingStage) Close() error { return nil }

func TestRunSlicesMergesPartialCounts(t *testing.T) {
	reader := memindex.NewReader(
		memindex.NewLeaf(0, 400),
		memindex.NewLeaf(1, 300),
		memindex.NewLeaf(2, 300),
	)
	src := source.NewOperator(reader, 0, memindex.MatchAllQuery{})
	slices, err := src.DocSlice(4)
	if err != nil {
		t.Fatal(err)
	}

	final := compute.NewCountAggregator(compute.PartialToFinal, 0)
	build := func(slice *source.Operator) (*compute.Driver, error) {
		return compute.NewDriver(slice, newCountingStage()), nil
	}
	combine := func(p *compute.Page) error { return final.AddIntermediateInput(p.GetBlock(0)) }

	stats := &Stats{Concurrency: 2}
	if err := RunSlices(context.Background(), slices, build, combine, stats); err != nil {
		t.Fatal(err)
	}

	out, err := final.EvaluateFinal()
	if err != nil {
		t.Fatal(err)
	}
	if got := out.GetLong(0); got != 1000 {
		t.Fatalf("merged count = %d, want 1000", got)
	}
	if stats.SlicesDone() != int64(len(slices)) {
		t.Fatalf("SlicesDone() = %d, want %d", stats.SlicesDone(), len(slices))
	}
	if stats.RowsScanned() != 1000 {
		t.Fatalf("RowsScanned() = %d, want 1000", stats.RowsScanned())
	}
}

func TestRunSlicesPropagatesPipelineError(t *testing.T) {
	reader := memindex.NewReader(memindex.NewLeaf(0, 10))
	src := source.NewOperator(reader, 0, memindex.MatchAllQuery{})
	slices, err := src.DocSlice(1)
	if err != nil {
		t.Fatal(err)
	}

	// A PartialToFinal aggregator rejects raw input: feeding it directly
	// from a scanning source operator is a mode mismatch.
	boom := &countingStage{agg: compute.NewCountAggregator(compute.PartialToFinal, 0)}
	build := func(slice *source.Operator) (*compute.Driver, error) {
		return compute.NewDriver(slice, boom), nil
	}
	err = RunSlices(context.Background(), slices, build, func(*compute.Page) error { return nil }, nil)
	if err == nil {
		t.Fatal("expected a mode-mismatch error from the pipeline")
	}
}
