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

// Package runner fans a document-sliced source operator out into
// independent, single-threaded compute.Driver pipelines and merges
// their partial output back into a final aggregator. Each pipeline is
// exactly the cooperative pull loop described in the compute package;
// the only concurrency is across pipelines, one goroutine per slice,
// never within one.
package runner

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sync/errgroup"

	compute "github.com/sneller-search/compute-core"
	"github.com/sneller-search/compute-core/internal/atomicext"
	"github.com/sneller-search/compute-core/source"
)

// DefaultConcurrency bounds how many slice pipelines run at once when
// a caller does not set Stats.Concurrency.
const DefaultConcurrency = 8

// Stats accumulates cross-pipeline progress counters. All fields are
// updated concurrently from slice goroutines via atomic operations and
// are safe to read at any time, including before RunSlices returns.
type Stats struct {
	Concurrency int // 0 means DefaultConcurrency

	slicesStarted  int64
	slicesDone     int64
	rowsScanned    int64
	maxRowsInSlice int64
	seconds        float64
}

func (s *Stats) SlicesStarted() int64  { return atomic.LoadInt64(&s.slicesStarted) }
func (s *Stats) SlicesDone() int64     { return atomic.LoadInt64(&s.slicesDone) }
func (s *Stats) RowsScanned() int64    { return atomic.LoadInt64(&s.rowsScanned) }
func (s *Stats) MaxRowsInSlice() int64 { return atomic.LoadInt64(&s.maxRowsInSlice) }

// Seconds returns the accumulated wall-clock time spent across every
// slice's pipeline, summed rather than wall-clock elapsed: it answers
// "how much sequential work would this have been" not "how long did
// RunSlices block".
func (s *Stats) Seconds() float64 {
	return math.Float64frombits(atomic.LoadUint64((*uint64)(unsafe.Pointer(&s.seconds))))
}

// PipelineFunc builds one independent driver for a single document
// slice. It is called once per slice produced by Operator.DocSlice or
// Operator.SegmentSlice; the returned driver's sink is expected to be
// a pipeline-breaker (an aggregator or TopN) emitting partial output.
type PipelineFunc func(slice *source.Operator) (*compute.Driver, error)

// RunSlices runs build(slice).Run for every slice concurrently,
// bounded by stats.Concurrency (or DefaultConcurrency), and calls
// combine once per page any pipeline emits. combine is invoked under
// a lock, so it never needs its own synchronization; it is the
// natural place to feed a PartialToFinal aggregator. RunSlices returns
// the first error from any pipeline or combine call, after every
// started pipeline has finished or the context is cancelled.
func RunSlices(ctx context.Context, slices []*source.Operator, build PipelineFunc, combine func(*compute.Page) error, stats *Stats) error {
	if stats == nil {
		stats = &Stats{}
	}
	limit := stats.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	var combineMu sync.Mutex

	atomic.AddInt64(&stats.slicesStarted, int64(len(slices)))
	for _, slice := range slices {
		slice := slice
		g.Go(func() error {
			start := time.Now()
			driver, err := build(slice)
			if err != nil {
				return err
			}
			var rows int64
			runErr := driver.Run(gctx, func(p *compute.Page) error {
				rows += int64(p.GetPositionCount())
				combineMu.Lock()
				defer combineMu.Unlock()
				return combine(p)
			})
			atomic.AddInt64(&stats.rowsScanned, rows)
			atomicext.MaxInt64(&stats.maxRowsInSlice, rows)
			atomicext.AddFloat64(&stats.seconds, time.Since(start).Seconds())
			atomic.AddInt64(&stats.slicesDone, 1)
			return runErr
		})
	}
	return g.Wait()
}
