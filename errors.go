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

import "errors"

// Sentinel error kinds. The driver is the only recovery boundary;
// nothing inside the core retries these.
var (
	// ErrContractViolation marks a caller misuse of the operator
	// protocol: AddInput while NeedsInput()==false, Finish called
	// twice, slicing a source operator twice, or out-of-range block
	// access.
	ErrContractViolation = errors.New("compute: contract violation")

	// ErrVariableSizeState is returned by an aggregator-state builder
	// when a serialized state's byte length differs from the
	// serializer's declared Size().
	ErrVariableSizeState = errors.New("compute: aggregator state is not fixed-size")

	// ErrModeMismatch is returned when AddIntermediateInput receives a
	// block that isn't an aggregator-state block, or AddRawInput is
	// called on an aggregator whose mode expects partial input.
	ErrModeMismatch = errors.New("compute: aggregator mode mismatch")

	// ErrReaderIO wraps an index-reader I/O failure observed by a
	// source operator.
	ErrReaderIO = errors.New("compute: index reader I/O error")

	// ErrCancelled is returned by a driver run that observed
	// cancellation via its context.
	ErrCancelled = errors.New("compute: cancelled")
)
