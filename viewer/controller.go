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

// Package viewer implements the controller of a paginated document viewer.
//
// A [Controller] owns the navigation state of one viewing session.  User
// intents (next page, zoom, resize, ...) update the state and request a new
// render from a [render.Scheduler].  Observers are informed through
// listener callbacks.
//
// The controller moves through the phases Empty, Loading, Ready and Error.
// Intents are only acted on in the Ready phase; in every other phase they
// are silently ignored.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"seehuhn.de/go/pdfview/engine"
	"seehuhn.de/go/pdfview/gesture"
	"seehuhn.de/go/pdfview/internal/logging"
	"seehuhn.de/go/pdfview/navigation"
	"seehuhn.de/go/pdfview/render"
)

// Phase is the life-cycle phase of a [Controller].
type Phase int

// These are the phases of a controller.
const (
	PhaseEmpty Phase = iota
	PhaseLoading
	PhaseReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// PageTurn describes an accepted navigation or zoom intent, for the
// page-turn indication.  From and To are equal for zoom changes.
type PageTurn struct {
	From, To int
	Duration time.Duration
}

// Controller coordinates navigation, rendering and listeners for one
// document.  All methods are safe for concurrent use.
//
// Listeners may be called from different goroutines.  State listeners are
// called one at a time and always see snapshots in the order the changes
// happened; a snapshot which is overtaken by a newer one before it is
// delivered is dropped.  Listeners must not call intent methods
// synchronously.
type Controller struct {
	cfg    Config
	opener Opener
	sched  *render.Scheduler
	resize *gesture.Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	phase     Phase
	closed    bool
	doc       Document
	nav       navigation.State
	width     float64
	last      render.Result
	flipUntil time.Time

	// inflight counts the renders which have been begun but not settled.
	// settled is signalled when it drops to zero.
	inflight int
	settled  *sync.Cond

	// seq numbers the state notifications.  notifyMu serializes their
	// delivery; delivered is the newest number passed to the listeners.
	seq       uint64
	notifyMu  sync.Mutex
	delivered uint64

	stateListeners []func(navigation.Snapshot)
	errorListeners []func(Error)
	turnListeners  []func(PageTurn)
}

// New returns a controller in the [PhaseEmpty] phase.  Call
// [Controller.Open] to load the document.  If opener is nil, documents
// are read from disk using [PDFOpener].
func New(cfg Config, opener Opener) (*Controller, error) {
	if cfg.Source == "" {
		return nil, &ConfigurationError{Field: "Source", Reason: "is missing"}
	}
	if opener == nil {
		opener = PDFOpener(engine.Options{})
	}
	cfg.setDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:    cfg,
		opener: opener,
		sched:  render.NewScheduler(nil),
		resize: gesture.NewDebouncer(cfg.ResizeQuietPeriod, cfg.AfterFunc),
		ctx:    ctx,
		cancel: cancel,
		width:  cfg.ContainerWidth,
	}
	c.settled = sync.NewCond(&c.mu)
	return c, nil
}

// OnStateChanged registers a listener which is called after every
// successful navigation or zoom change, and after every render which
// reached the screen.
func (c *Controller) OnStateChanged(fn func(navigation.Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateListeners = append(c.stateListeners, fn)
}

// OnError registers a listener for document, page and render errors.
// Cancelled renders are never reported.
func (c *Controller) OnError(fn func(Error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorListeners = append(c.errorListeners, fn)
}

// OnPageTurn registers a listener for the page-turn indication, which is
// shown after every accepted navigation or zoom intent.  Each call runs on
// its own goroutine and is never waited for.
func (c *Controller) OnPageTurn(fn func(PageTurn)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turnListeners = append(c.turnListeners, fn)
}

// Open loads the document named in the configuration.  On success the
// first page is shown at zoom 1.0 and Open waits for it to be rendered;
// render problems are reported to the error listeners, not returned.
//
// If the document cannot be opened, the controller enters [PhaseError]
// and a [*DocumentOpenError] is returned.  Open can be called again to
// reload the document.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prev := c.phase
	c.phase = PhaseLoading
	c.mu.Unlock()

	log := logging.Logger().With("source", c.cfg.Source)
	log.Debug("opening document")

	doc, err := c.opener.OpenDocument(ctx, c.cfg.Source, c.cfg.Password)
	if err == nil && doc == nil {
		err = errors.New("no document")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if doc != nil {
			doc.Close()
		}
		return ErrClosed
	}
	if err != nil && ctx.Err() != nil {
		c.phase = prev
		c.mu.Unlock()
		return ctx.Err()
	}

	old := c.doc
	if err != nil {
		c.doc = nil
		c.nav = navigation.State{}
		c.phase = PhaseError
		c.sched.SetPages(nil)
		c.mu.Unlock()
		if old != nil {
			old.Close()
		}

		openErr := &DocumentOpenError{Source: c.cfg.Source, Err: err}
		c.report(openErr)
		return openErr
	}

	c.doc = doc
	c.nav.Load(doc.NumPages())
	c.phase = PhaseReady
	c.last = render.Result{}
	c.sched.SetPages(doc)
	snap, seq := c.snapshotLocked()
	var p *render.Pending
	if snap.PageCount > 0 {
		p = c.beginRenderLocked()
	}
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	log.Info("document loaded", "pages", snap.PageCount)

	c.notifyState(snap, seq)
	if p != nil {
		c.runRender(p)
	}
	return nil
}

// Next moves to the next page.  It reports whether the page changed.
func (c *Controller) Next() bool {
	return c.apply(func(nav *navigation.State) bool {
		_, ok := nav.GoToNext()
		return ok
	})
}

// Previous moves to the previous page.  It reports whether the page
// changed.
func (c *Controller) Previous() bool {
	return c.apply(func(nav *navigation.State) bool {
		_, ok := nav.GoToPrevious()
		return ok
	})
}

// GoTo moves to the given 1-based page, clamped to the document.
func (c *Controller) GoTo(page int) bool {
	return c.apply(func(nav *navigation.State) bool {
		_, ok := nav.GoTo(page)
		return ok
	})
}

// ZoomIn increases the zoom level by step.  If step is not positive, the
// configured zoom step is used.  ZoomIn reports whether the zoom level
// changed.
func (c *Controller) ZoomIn(step float64) bool {
	if !(step > 0) {
		step = c.cfg.ZoomStep
	}
	return c.zoomBy(step)
}

// ZoomOut decreases the zoom level by step.  If step is not positive, the
// configured zoom step is used.
func (c *Controller) ZoomOut(step float64) bool {
	if !(step > 0) {
		step = c.cfg.ZoomStep
	}
	return c.zoomBy(-step)
}

func (c *Controller) zoomBy(delta float64) bool {
	return c.apply(func(nav *navigation.State) bool {
		before := nav.Zoom()
		return nav.SetZoom(delta) != before
	})
}

// ToggleZoom switches between the default and a magnified zoom level.
func (c *Controller) ToggleZoom() bool {
	return c.apply(func(nav *navigation.State) bool {
		before := nav.Zoom()
		return nav.ToggleZoom() != before
	})
}

// NotifySwipe handles a completed horizontal swipe of dx layout pixels.
func (c *Controller) NotifySwipe(dx float64) bool {
	return c.Dispatch(gesture.SwipeIntent(dx))
}

// HandleKey handles a key press.
func (c *Controller) HandleKey(k gesture.Key) bool {
	return c.Dispatch(gesture.KeyIntent(k))
}

// DoubleActivate handles a double click or double tap.
func (c *Controller) DoubleActivate() bool {
	return c.Dispatch(gesture.DoubleActivation())
}

// Dispatch performs the action for an intent, using the configured zoom
// step.  It reports whether the state changed.
func (c *Controller) Dispatch(intent gesture.Intent) bool {
	switch intent {
	case gesture.Next:
		return c.Next()
	case gesture.Previous:
		return c.Previous()
	case gesture.ZoomIn:
		return c.ZoomIn(0)
	case gesture.ZoomOut:
		return c.ZoomOut(0)
	case gesture.ToggleZoom:
		return c.ToggleZoom()
	}
	return false
}

// NotifyResize records a new container width.  Bursts of resize events are
// collapsed: the page is re-rendered once, using the last width, after the
// quiet period has passed.
func (c *Controller) NotifyResize(containerWidth float64) {
	c.resize.Trigger(func() {
		c.applyResize(containerWidth)
	})
}

func (c *Controller) applyResize(width float64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.width = width
	if c.phase != PhaseReady || c.nav.PageCount() == 0 {
		c.mu.Unlock()
		return
	}
	p := c.beginRenderLocked()
	c.mu.Unlock()

	logging.Logger().Debug("container resized", "width", width)
	go c.runRender(p)
}

// apply runs fn on the navigation state.  If fn reports a change,
// listeners are notified and a new render is requested.
func (c *Controller) apply(fn func(nav *navigation.State) bool) bool {
	c.mu.Lock()
	if c.closed || c.phase != PhaseReady || c.nav.PageCount() == 0 {
		c.mu.Unlock()
		return false
	}

	from := c.nav.PageIndex()
	if !fn(&c.nav) {
		c.mu.Unlock()
		return false
	}
	turn := PageTurn{From: from, To: c.nav.PageIndex(), Duration: c.cfg.PulseDuration}
	c.flipUntil = time.Now().Add(c.cfg.PulseDuration)
	snap, seq := c.snapshotLocked()
	p := c.beginRenderLocked()
	c.mu.Unlock()

	c.pulse(turn)
	c.notifyState(snap, seq)
	go c.runRender(p)
	return true
}

// beginRenderLocked reserves a render for the current state.
// The caller must hold c.mu and must run the result with runRender.
func (c *Controller) beginRenderLocked() *render.Pending {
	req := render.Request{
		Page:             c.nav.PageIndex(),
		Zoom:             c.nav.Zoom(),
		ContainerWidth:   c.width,
		DevicePixelRatio: c.cfg.DevicePixelRatio,
		Sizer:            c.cfg.Sizer,
	}
	c.inflight++
	return c.sched.Begin(c.ctx, req)
}

func (c *Controller) runRender(p *render.Pending) {
	defer func() {
		c.mu.Lock()
		c.inflight--
		if c.inflight == 0 {
			c.settled.Broadcast()
		}
		c.mu.Unlock()
	}()

	res, err := p.Run()
	if err != nil {
		if c.ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		c.report(err)
		return
	}
	if res.Superseded {
		return
	}

	c.mu.Lock()
	if res.Token > c.last.Token {
		c.last = *res
	}
	snap, seq := c.snapshotLocked()
	c.mu.Unlock()

	c.notifyState(snap, seq)
}

// snapshotLocked returns the navigation state together with a new
// notification number.  The caller must hold c.mu.
func (c *Controller) snapshotLocked() (navigation.Snapshot, uint64) {
	c.seq++
	return c.nav.Snapshot(), c.seq
}

// notifyState delivers a snapshot to the state listeners, unless a newer
// one has been delivered already.
func (c *Controller) notifyState(snap navigation.Snapshot, seq uint64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if seq <= c.delivered {
		return
	}
	c.delivered = seq

	c.mu.Lock()
	listeners := c.stateListeners
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (c *Controller) report(err error) {
	e, ok := classify(err)
	if !ok {
		return
	}
	logging.Logger().Warn("viewer error", "kind", e.Kind, "page", e.Page, "err", err)

	c.mu.Lock()
	listeners := c.errorListeners
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(e)
	}
}

func (c *Controller) pulse(turn PageTurn) {
	c.mu.Lock()
	listeners := c.turnListeners
	c.mu.Unlock()

	for _, fn := range listeners {
		go fn(turn)
	}
}

// Wait blocks until no render is in flight.  Renders requested by other
// goroutines while Wait is blocked are waited for as well.
func (c *Controller) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.inflight > 0 {
		c.settled.Wait()
	}
}

// Phase returns the current life-cycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Snapshot returns the current navigation state.
func (c *Controller) Snapshot() navigation.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.Snapshot()
}

// LastRender describes the most recent render which reached the screen.
// The zero value is returned before the first render.
func (c *Controller) LastRender() render.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Flipping reports whether the page-turn indication is active.
func (c *Controller) Flipping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Before(c.flipUntil)
}

// Frame returns a copy of what is currently shown.
func (c *Controller) Frame() render.Frame {
	return c.sched.Surface().Frame()
}

// Title returns the title of the loaded document.  If the document has no
// title, the source name is returned.
func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc != nil {
		if t := c.doc.Title(); t != "" {
			return t
		}
	}
	return c.cfg.Source
}

// Close cancels all pending work and closes the document.  Close waits for
// renders in flight to settle.  Calling Close more than once is allowed.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	doc := c.doc
	c.doc = nil
	c.mu.Unlock()

	c.resize.Stop()
	c.cancel()
	c.sched.Cancel()
	c.Wait()

	if doc != nil {
		return doc.Close()
	}
	return nil
}
