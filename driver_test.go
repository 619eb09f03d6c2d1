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
	"errors"
	"fmt"
	"testing"
	"time"
)

// fixedSource replays a fixed list of pages and never accepts input,
// the shape every real source operator has.
type fixedSource struct {
	pages  []*Page
	idx    int
	closed bool
}

func (s *fixedSource) NeedsInput() bool { return false }
func (s *fixedSource) AddInput(*Page) error {
	return fmt.Errorf("%w: AddInput on fixedSource", ErrContractViolation)
}
func (s *fixedSource) Finish() error {
	return fmt.Errorf("%w: Finish on fixedSource", ErrContractViolation)
}
func (s *fixedSource) IsFinished() bool { return s.idx >= len(s.pages) }
func (s *fixedSource) GetOutput() (*Page, error) {
	if s.IsFinished() {
		return nil, nil
	}
	p := s.pages[s.idx]
	s.idx++
	return p, nil
}
func (s *fixedSource) Close() error { s.closed = true; return nil }

// passthrough buffers exactly one page at a time, the minimal shape of
// a one-for-one streaming operator.
type passthrough struct {
	pending  *Page
	finished bool
	closed   bool
}

func (p *passthrough) NeedsInput() bool  { return p.pending == nil && !p.finished }
func (p *passthrough) AddInput(pg *Page) error {
	if !p.NeedsInput() {
		return fmt.Errorf("%w: AddInput while not accepting", ErrContractViolation)
	}
	p.pending = pg
	return nil
}
func (p *passthrough) Finish() error   { p.finished = true; return nil }
func (p *passthrough) IsFinished() bool { return p.finished && p.pending == nil }
func (p *passthrough) GetOutput() (*Page, error) {
	out := p.pending
	p.pending = nil
	return out, nil
}
func (p *passthrough) Close() error { p.closed = true; return nil }

func TestDriverPumpsPagesInOrder(t *testing.T) {
	pages := []*Page{
		mustPage(t, NewIntBlock([]int32{1})),
		mustPage(t, NewIntBlock([]int32{2})),
		mustPage(t, NewIntBlock([]int32{3})),
	}
	src := &fixedSource{pages: pages}
	pt := &passthrough{}
	d := NewDriver(src, pt)

	var got []int32
	err := d.Run(context.Background(), func(p *Page) error {
		got = append(got, p.GetBlock(0).GetInt(0))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("got %v, want [1 2 3]", got)
	}
	if !src.closed || !pt.closed {
		t.Fatal("Run must Close every operator")
	}
}

func TestDriverClosesOperatorsOnEmitError(t *testing.T) {
	src := &fixedSource{pages: []*Page{mustPage(t, NewIntBlock([]int32{1}))}}
	pt := &passthrough{}
	d := NewDriver(src, pt)

	wantErr := errors.New("boom")
	err := d.Run(context.Background(), func(*Page) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if !src.closed || !pt.closed {
		t.Fatal("Run must Close every operator even on emit error")
	}
}

func TestDriverRespectsCancellation(t *testing.T) {
	src := &fixedSource{pages: []*Page{
		mustPage(t, NewIntBlock([]int32{1})),
		mustPage(t, NewIntBlock([]int32{2})),
	}}
	pt := &passthrough{}
	d := NewDriver(src, pt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// give the cancellation a moment to be observable; Done() is
	// already closed synchronously by cancel() so this is just belt
	// and suspenders against scheduler timing.
	time.Sleep(time.Millisecond)

	err := d.Run(ctx, func(*Page) error { return nil })
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
}

func mustPage(t *testing.T, blocks ...*Block) *Page {
	t.Helper()
	p, err := NewPage(blocks...)
	if err != nil {
		t.Fatal(err)
	}
	return p
}
