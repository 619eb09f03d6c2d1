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

// Trace is a global diagnostic hook that embedders may set during
// init() to capture low-volume diagnostic output from the core: page
// flushes and slice boundaries in source.Operator, aggregator
// mode-driven evaluate calls, and TopN state transitions. It is nil
// by default, in which case tracing costs a single nil check per call
// site.
var Trace func(f string, args ...any)

func trace(f string, args ...any) {
	if Trace != nil {
		Trace(f, args...)
	}
}
