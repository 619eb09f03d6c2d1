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
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Driver is the single-threaded, pull-driven loop that advances a
// pipeline of operators. It holds operators in source-to-sink order
// and, on each tick, asks the last (sink) operator for output; if the
// sink has none ready, the driver asks the operator before it for a
// page, recursing toward the source, and feeds pages forward one hop
// at a time. There is no intra-pipeline concurrency: parallelism
// comes from running multiple Drivers (see the runner package).
type Driver struct {
	// ID uniquely tags this pipeline run for log correlation across
	// concurrently running pipelines.
	ID uuid.UUID

	ops []Operator
}

// NewDriver assembles a driver from operators in source-to-sink
// order. ops[0] must be a source operator (NeedsInput()==false).
func NewDriver(ops ...Operator) *Driver {
	return &Driver{ID: uuid.New(), ops: ops}
}

// Run drives the pipeline to completion, calling emit for every page
// the sink produces, and Close on every operator exactly once — on
// success, on error, and on context cancellation alike. If ctx is
// cancelled before the sink finishes, Run returns ErrCancelled.
func (d *Driver) Run(ctx context.Context, emit func(*Page) error) (err error) {
	defer func() {
		for _, op := range d.ops {
			if cerr := op.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()

	if len(d.ops) == 0 {
		return nil
	}
	trace("driver %s: starting run over %d operators", d.ID, len(d.ops))
	sink := d.ops[len(d.ops)-1]
	for !sink.IsFinished() {
		select {
		case <-ctx.Done():
			trace("driver %s: cancelled", d.ID)
			return ErrCancelled
		default:
		}
		out, perr := d.pump(len(d.ops) - 1)
		if perr != nil {
			return perr
		}
		if out == nil {
			if sink.IsFinished() {
				break
			}
			continue
		}
		if err := emit(out); err != nil {
			return err
		}
	}
	trace("driver %s: sink finished", d.ID)
	return nil
}

// pump tries to produce one output page from d.ops[i], recursively
// pulling from upstream operators and feeding them forward as needed.
// It returns (nil, nil) when nothing more can be produced this tick
// without blocking further upstream.
func (d *Driver) pump(i int) (*Page, error) {
	op := d.ops[i]
	for {
		if op.IsFinished() {
			return nil, nil
		}
		out, err := op.GetOutput()
		if err != nil {
			return nil, fmt.Errorf("operator %d: %w", i, err)
		}
		if out != nil {
			return out, nil
		}
		if i == 0 {
			// the source either produces a page or becomes finished
			// in a single GetOutput call; nothing more to do here.
			return nil, nil
		}
		if !op.NeedsInput() {
			return nil, nil
		}
		in, err := d.pump(i - 1)
		if err != nil {
			return nil, err
		}
		if in == nil {
			if d.ops[i-1].IsFinished() {
				if err := op.Finish(); err != nil {
					return nil, fmt.Errorf("operator %d: finish: %w", i, err)
				}
				continue
			}
			return nil, nil
		}
		if err := op.AddInput(in); err != nil {
			return nil, fmt.Errorf("operator %d: %w", i, err)
		}
	}
}
