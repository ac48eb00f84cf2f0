// Copyright (C) 2022 Sneller, Inc.
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

package txn

import (
	"os"
	"os/signal"
)

// Uninterruptible runs fn with delivery of os.Interrupt deferred in the
// same manner as Commit's internal critical section. It is exported for
// other components (the variable index's JSON rewrite) that need the same
// mask-write-unmask discipline outside of a Txn's buffered writes.
func Uninterruptible(fn func()) {
	withSignalsMasked(fn)
}

// withSignalsMasked runs fn with delivery of os.Interrupt deferred: if an
// interrupt arrives while fn is running, the process finishes fn's work
// before the signal is allowed to take effect, then re-raises it so normal
// shutdown still happens.
//
// Unlike the Python original (which could only suspend signal delivery on
// POSIX via pysigset and ran unguarded on Windows), os/signal.Notify works
// uniformly across every platform Go supports, so this section is
// uninterruptible everywhere rather than POSIX-only. See DESIGN.md.
func withSignalsMasked(fn func()) {
	caught := make(chan os.Signal, 1)
	signal.Notify(caught, os.Interrupt)
	defer signal.Stop(caught)

	fn()

	select {
	case <-caught:
		// Deliver the deferred interrupt to ourselves now that the
		// critical section has finished. The channel is unregistered
		// first so the re-raised signal is not caught by it again.
		signal.Stop(caught)
		p, err := os.FindProcess(os.Getpid())
		if err == nil {
			p.Signal(os.Interrupt)
		}
	default:
	}
}
