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

// Package compute implements the data plane of a push-pull,
// columnar query-execution core: typed blocks and pages, the
// operator push/pull protocol, scalar and grouping aggregators with
// a bit-exact state wire format, and a bounded top-N operator. The
// source operator that turns an inverted-index scan into pages lives
// in the sibling source package; multi-pipeline fan-out lives in
// runner.
package compute

// Operator is the push/pull contract every pipeline stage implements.
// The driver composes operators by repeatedly polling NeedsInput,
// AddInput, GetOutput, and IsFinished; it never calls AddInput unless
// NeedsInput() was observed true, and never calls Finish twice.
//
// Source operators never accept input: NeedsInput always reports
// false and AddInput/Finish are contract violations. Pipeline-breaker
// operators (aggregators, top-N) accept input until Finish is called,
// then transition to producing output. Streaming operators accept
// and produce pages one-for-one or fewer.
type Operator interface {
	// NeedsInput reports whether the operator can accept another page
	// right now.
	NeedsInput() bool

	// AddInput hands a page to the operator. Calling it when
	// NeedsInput() is false is a contract violation.
	AddInput(p *Page) error

	// Finish signals that no more input will arrive. Legal exactly
	// once.
	Finish() error

	// IsFinished reports whether the operator is fully drained: no
	// more output will ever be produced.
	IsFinished() bool

	// GetOutput pulls zero or one output page. It returns (nil, nil)
	// if no page is ready yet, which is never itself an error.
	GetOutput() (*Page, error)

	// Close releases any resources the operator is holding. The
	// driver invokes it exactly once per operator, even on
	// cancellation.
	Close() error
}
