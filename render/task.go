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

package render

import (
	"context"
	"sync"
)

// Task is a render operation which is in progress.
type Task interface {
	// Cancel asks the operation to stop.  Cancel may be called at any
	// time, any number of times, including after the task has settled.
	// Stopping is best effort; a cancelled task may still run to
	// completion.
	Cancel()

	// Wait blocks until the task has settled and returns its error.
	Wait() error
}

// Go runs fn on a new goroutine and returns a Task for it.  The context
// passed to fn is cancelled by [Task.Cancel] and when ctx is done.
func Go(ctx context.Context, fn func(ctx context.Context) error) Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &goTask{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer cancel()
		t.err = fn(ctx)
	}()
	return t
}

type goTask struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (t *goTask) Cancel() {
	t.cancel()
}

func (t *goTask) Wait() error {
	<-t.done
	return t.err
}

// Failed returns a Task which has already settled with the given error.
func Failed(err error) Task {
	return failedTask{err}
}

type failedTask struct{ err error }

func (failedTask) Cancel() {}
func (t failedTask) Wait() error { return t.err }

// canceller remembers everything needed to abandon one render request.
type canceller struct {
	cancel context.CancelFunc

	mu   sync.Mutex
	task Task
	done bool
}

// attach records the engine task for the request.  It reports false if
// the request has already been cancelled, in which case the task is
// cancelled immediately.
func (c *canceller) attach(t Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		t.Cancel()
		return false
	}
	c.task = t
	return true
}

// abandon cancels the request's context and its engine task.
// It is safe to call abandon more than once.
func (c *canceller) abandon() {
	c.cancel()

	c.mu.Lock()
	c.done = true
	t := c.task
	c.mu.Unlock()

	if t != nil {
		t.Cancel()
	}
}
