// seehuhn.de/go/pdfview - a paginated viewer for PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package gesture

import (
	"sync"
	"time"
)

// ResizeQuietPeriod is the default quiet period for resize events.
const ResizeQuietPeriod = 120 * time.Millisecond

// Stopper is a pending timer.  *time.Timer implements this interface.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f to run after d.  [time.AfterFunc] is the default
// implementation; tests substitute a fake clock.
type AfterFunc func(d time.Duration, f func()) Stopper

func realAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Debouncer collapses bursts of events into a single trailing call.
//
// Every call to [Debouncer.Trigger] cancels the pending action and
// schedules a new one after the quiet period, so that only the last event
// of a burst takes effect.  This is a debounce, not a throttle.
type Debouncer struct {
	quiet     time.Duration
	afterFunc AfterFunc

	mu      sync.Mutex
	pending Stopper
	gen     uint64
}

// NewDebouncer returns a Debouncer with the given quiet period.
// If afterFunc is nil, [time.AfterFunc] is used.
func NewDebouncer(quiet time.Duration, afterFunc AfterFunc) *Debouncer {
	if quiet <= 0 {
		quiet = ResizeQuietPeriod
	}
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	return &Debouncer{quiet: quiet, afterFunc: afterFunc}
}

// Trigger schedules fn to run once the quiet period has passed without
// another call to Trigger.  Any previously scheduled function is dropped.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = d.afterFunc(d.quiet, func() {
		d.mu.Lock()
		current := gen == d.gen
		if current {
			d.pending = nil
		}
		d.mu.Unlock()

		// A timer which fired while a newer Trigger was stopping it must
		// not run.
		if current {
			fn()
		}
	})
}

// Pending reports whether an action is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Stop drops the scheduled action, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	d.gen++
}
