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

package viewer

import (
	"context"
	"errors"
	"image"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/pdfview/geometry"
	"seehuhn.de/go/pdfview/gesture"
	"seehuhn.de/go/pdfview/navigation"
	"seehuhn.de/go/pdfview/render"
)

type renderCall struct {
	Page  int
	Scale float64
}

// fakeDoc is an in-memory document.  Renders can be held back by setting
// block; a held render finishes when block is closed or the render is
// cancelled.
type fakeDoc struct {
	pages int
	size  geometry.Size

	mu        sync.Mutex
	calls     []renderCall
	renderErr map[int]error
	geomErr   map[int]error
	block     chan struct{}

	closed atomic.Bool
}

func newFakeDoc(pages int) *fakeDoc {
	return &fakeDoc{
		pages:     pages,
		size:      geometry.Size{Width: 100, Height: 150},
		renderErr: map[int]error{},
		geomErr:   map[int]error{},
	}
}

func (d *fakeDoc) NumPages() int { return d.pages }
func (d *fakeDoc) Title() string { return "Fake" }

func (d *fakeDoc) Close() error {
	d.closed.Store(true)
	return nil
}

func (d *fakeDoc) PageGeometry(ctx context.Context, page int) (geometry.Size, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.geomErr[page]; err != nil {
		return geometry.Size{}, err
	}
	return d.size, nil
}

func (d *fakeDoc) RenderPage(ctx context.Context, page int, dst *image.RGBA, vp render.Viewport) render.Task {
	d.mu.Lock()
	d.calls = append(d.calls, renderCall{Page: page, Scale: vp.Scale})
	err := d.renderErr[page]
	block := d.block
	d.mu.Unlock()

	return render.Go(ctx, func(ctx context.Context) error {
		if block != nil {
			select {
			case <-block:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return err
	})
}

func (d *fakeDoc) renderCalls() []renderCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]renderCall(nil), d.calls...)
}

func (d *fakeDoc) setBlock(ch chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.block = ch
}

func opener(doc Document, err error) Opener {
	return OpenerFunc(func(ctx context.Context, source, password string) (Document, error) {
		if err != nil {
			return nil, err
		}
		return doc, nil
	})
}

// recorder collects the listener calls of a controller.
type recorder struct {
	mu     sync.Mutex
	states []navigation.Snapshot
	errs   []Error
}

func record(c *Controller) *recorder {
	r := &recorder{}
	c.OnStateChanged(func(s navigation.Snapshot) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.states = append(r.states, s)
	})
	c.OnError(func(e Error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.errs = append(r.errs, e)
	})
	return r
}

func (r *recorder) errors() []Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Error(nil), r.errs...)
}

func (r *recorder) numStates() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func newTestController(t *testing.T, doc *fakeDoc, cfg Config) *Controller {
	t.Helper()
	if cfg.Source == "" {
		cfg.Source = "test.pdf"
	}
	if cfg.ContainerWidth == 0 {
		cfg.ContainerWidth = 200
	}
	c, err := New(cfg, opener(doc, nil))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewRequiresSource(t *testing.T) {
	_, err := New(Config{}, opener(newFakeDoc(1), nil))
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "Source" {
		t.Errorf("got %v", err)
	}
}

func TestOpenFailure(t *testing.T) {
	boom := errors.New("not a PDF file")
	c, err := New(Config{Source: "broken.pdf"}, opener(nil, boom))
	if err != nil {
		t.Fatal(err)
	}
	rec := record(c)

	err = c.Open(context.Background())
	var openErr *DocumentOpenError
	if !errors.As(err, &openErr) || openErr.Source != "broken.pdf" || !errors.Is(err, boom) {
		t.Fatalf("Open() = %v", err)
	}
	if p := c.Phase(); p != PhaseError {
		t.Errorf("phase %s", p)
	}
	errs := rec.errors()
	if len(errs) != 1 || errs[0].Kind != KindDocumentOpen {
		t.Errorf("reported errors %v", errs)
	}

	// the viewer is inert
	if c.Next() || c.ZoomIn(0) || c.ToggleZoom() {
		t.Error("intent accepted after failed open")
	}
	if d := cmp.Diff(navigation.Snapshot{}, c.Snapshot()); d != "" {
		t.Errorf("snapshot (-want +got)\n%s", d)
	}
}

func TestOpenAndNavigate(t *testing.T) {
	doc := newFakeDoc(3)
	c := newTestController(t, doc, Config{})
	rec := record(c)

	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p := c.Phase(); p != PhaseReady {
		t.Fatalf("phase %s", p)
	}
	if f := c.Frame(); f.Page != 1 {
		t.Errorf("frame shows page %d after open", f.Page)
	}
	if got := c.LastRender().FitScale; got != 2 {
		t.Errorf("fit scale %g", got)
	}

	if !c.Next() || !c.Next() {
		t.Fatal("navigation failed")
	}
	if c.Next() {
		t.Error("moved past the last page")
	}
	c.Wait()

	want := navigation.Snapshot{
		PageIndex:     3,
		PageCount:     3,
		ZoomPercent:   100,
		CanGoNext:     false,
		CanGoPrevious: true,
	}
	if d := cmp.Diff(want, c.Snapshot()); d != "" {
		t.Errorf("snapshot (-want +got)\n%s", d)
	}
	if f := c.Frame(); f.Page != 3 {
		t.Errorf("frame shows page %d", f.Page)
	}
	if f := c.Frame(); f.Buffer.CSSW != 200 || f.Buffer.CSSH != 300 {
		t.Errorf("frame buffer %+v", f.Buffer)
	}
	if n := rec.numStates(); n < 3 {
		t.Errorf("only %d state notifications", n)
	}
	if errs := rec.errors(); len(errs) != 0 {
		t.Errorf("unexpected errors %v", errs)
	}
	if title := c.Title(); title != "Fake" {
		t.Errorf("title %q", title)
	}
}

func TestZeroPageDocument(t *testing.T) {
	doc := newFakeDoc(0)
	c := newTestController(t, doc, Config{})

	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := navigation.Snapshot{PageIndex: 0, PageCount: 0, ZoomPercent: 100}
	if d := cmp.Diff(want, c.Snapshot()); d != "" {
		t.Errorf("snapshot (-want +got)\n%s", d)
	}
	if c.Next() || c.Previous() || c.GoTo(1) || c.ZoomIn(0) {
		t.Error("intent accepted for an empty document")
	}
	c.NotifyResize(500)
	c.Wait()
	if calls := doc.renderCalls(); len(calls) != 0 {
		t.Errorf("renders for an empty document: %v", calls)
	}
}

// fakeClock runs timers only when Advance is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) gesture.Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && t.at <= c.now {
			t.stopped = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func TestResizeBurst(t *testing.T) {
	clock := &fakeClock{}
	doc := newFakeDoc(2)
	c := newTestController(t, doc, Config{ContainerWidth: 100, AfterFunc: clock.AfterFunc})
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, w := range []float64{200, 300, 400, 500, 600} {
		c.NotifyResize(w)
		clock.Advance(10 * time.Millisecond)
	}
	c.Wait()
	if n := len(doc.renderCalls()); n != 1 {
		t.Fatalf("%d renders during the burst", n)
	}

	clock.Advance(gesture.ResizeQuietPeriod)
	c.Wait()

	want := []renderCall{
		{Page: 1, Scale: 1},
		{Page: 1, Scale: 6},
	}
	if d := cmp.Diff(want, doc.renderCalls()); d != "" {
		t.Errorf("render calls (-want +got)\n%s", d)
	}
}

func TestRenderErrorsReported(t *testing.T) {
	doc := newFakeDoc(3)
	boom := errors.New("boom")
	doc.renderErr[2] = boom
	doc.geomErr[3] = boom
	c := newTestController(t, doc, Config{})
	rec := record(c)

	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Next()
	c.Wait()
	c.Next()
	c.Wait()

	errs := rec.errors()
	if len(errs) != 2 {
		t.Fatalf("errors %v", errs)
	}
	if errs[0].Kind != KindRender || errs[0].Page != 2 || !errors.Is(errs[0].Err, boom) {
		t.Errorf("first error %+v", errs[0])
	}
	if errs[1].Kind != KindPageLoad || errs[1].Page != 3 {
		t.Errorf("second error %+v", errs[1])
	}

	if p := c.Phase(); p != PhaseReady {
		t.Errorf("phase %s", p)
	}
	if f := c.Frame(); f.Page != 1 {
		t.Errorf("frame shows page %d, want the previous frame", f.Page)
	}

	// errors are not retried
	var pages []int
	for _, call := range doc.renderCalls() {
		pages = append(pages, call.Page)
	}
	if d := cmp.Diff([]int{1, 2}, pages); d != "" {
		t.Errorf("render calls (-want +got)\n%s", d)
	}
}

func TestCancellationNotReported(t *testing.T) {
	doc := newFakeDoc(3)
	c := newTestController(t, doc, Config{})
	rec := record(c)
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	block := make(chan struct{})
	doc.setBlock(block)
	c.Next()
	c.Next()
	close(block)
	c.Wait()

	if errs := rec.errors(); len(errs) != 0 {
		t.Errorf("cancellation reported: %v", errs)
	}
	if f := c.Frame(); f.Page != 3 {
		t.Errorf("frame shows page %d", f.Page)
	}
}

func TestPageTurnPulse(t *testing.T) {
	doc := newFakeDoc(2)
	c := newTestController(t, doc, Config{})
	turns := make(chan PageTurn, 4)
	c.OnPageTurn(func(pt PageTurn) { turns <- pt })
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Flipping() {
		t.Error("flipping before any intent")
	}

	c.ZoomIn(0)
	if !c.Flipping() {
		t.Error("zoom did not start the page-turn indication")
	}
	c.Next()
	c.Next() // already on the last page
	c.Wait()

	var got []PageTurn
	for len(got) < 2 {
		select {
		case pt := <-turns:
			got = append(got, pt)
		case <-time.After(time.Second):
			t.Fatalf("only %d page turns", len(got))
		}
	}
	// listeners run on their own goroutines, so the order is not fixed
	sort.Slice(got, func(i, j int) bool { return got[i].To < got[j].To })
	want := []PageTurn{
		{From: 1, To: 1, Duration: DefaultPulseDuration},
		{From: 1, To: 2, Duration: DefaultPulseDuration},
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("page turns (-want +got)\n%s", d)
	}
	select {
	case pt := <-turns:
		t.Errorf("unexpected page turn %+v", pt)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestConcurrentIntents(t *testing.T) {
	doc := newFakeDoc(1000)
	c := newTestController(t, doc, Config{})
	rec := record(c)
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 300 {
				switch (g + i) % 5 {
				case 0, 1:
					c.Next()
				case 2:
					c.Previous()
				case 3:
					c.ZoomIn(0)
				case 4:
					c.ZoomOut(0)
				}
				c.Wait()
				c.Snapshot()
			}
		}()
	}
	wg.Wait()
	c.Wait()

	snap := c.Snapshot()
	if f := c.Frame(); f.Page != snap.PageIndex {
		t.Errorf("frame shows page %d, state is on page %d", f.Page, snap.PageIndex)
	}
	if r := c.LastRender(); r.Page != snap.PageIndex {
		t.Errorf("last render of page %d, state is on page %d", r.Page, snap.PageIndex)
	}
	rec.mu.Lock()
	last := rec.states[len(rec.states)-1]
	rec.mu.Unlock()
	if d := cmp.Diff(snap, last); d != "" {
		t.Errorf("last notification (-want +got)\n%s", d)
	}
	if errs := rec.errors(); len(errs) != 0 {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestNotificationsInOrder(t *testing.T) {
	doc := newFakeDoc(1000)
	c := newTestController(t, doc, Config{})
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	var (
		mu       sync.Mutex
		pages    []int
		disorder bool
	)
	c.OnStateChanged(func(s navigation.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if len(pages) > 0 && s.PageIndex < pages[len(pages)-1] {
			disorder = true
		}
		pages = append(pages, s.PageIndex)
	})

	// only forward moves, so delivered page numbers never decrease
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Next()
			}
		}()
	}
	wg.Wait()
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	if disorder {
		t.Errorf("notifications out of order: %v", pages)
	}
	if n := len(pages); n == 0 || pages[n-1] != 801 {
		t.Errorf("last notification for page %v, want 801", pages)
	}
}

func TestCloseDuringIntents(t *testing.T) {
	doc := newFakeDoc(100)
	c := newTestController(t, doc, Config{})
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				c.Next()
				c.ZoomIn(0)
				c.Previous()
				c.Wait()
			}
		}()
	}
	time.Sleep(time.Millisecond)
	if err := c.Close(); err != nil {
		t.Error(err)
	}
	wg.Wait()

	if !doc.closed.Load() {
		t.Error("document not closed")
	}
	if c.Next() {
		t.Error("intent accepted after Close")
	}
	c.Wait()
}

func TestZoom(t *testing.T) {
	doc := newFakeDoc(1)
	c := newTestController(t, doc, Config{})
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	for c.ZoomIn(0.5) {
	}
	if z := c.Snapshot().ZoomPercent; z != 250 {
		t.Errorf("zoom %d%% at the ceiling", z)
	}
	if c.ZoomIn(0) {
		t.Error("zoom in at the ceiling changed the state")
	}
	c.ToggleZoom()
	if z := c.Snapshot().ZoomPercent; z != 100 {
		t.Errorf("toggle from 250%% gave %d%%", z)
	}
	c.DoubleActivate()
	if z := c.Snapshot().ZoomPercent; z != 160 {
		t.Errorf("double activation gave %d%%", z)
	}
	c.ZoomOut(0)
	c.Wait()
	if z := c.Snapshot().ZoomPercent; z != 150 {
		t.Errorf("zoom out gave %d%%", z)
	}
	if got := c.LastRender().Scale; got != 3 {
		t.Errorf("effective scale %g, want 3", got)
	}
}

func TestGestures(t *testing.T) {
	doc := newFakeDoc(4)
	c := newTestController(t, doc, Config{})
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		do   func() bool
		ok   bool
		page int
	}{
		{func() bool { return c.HandleKey(gesture.ArrowRight) }, true, 2},
		{func() bool { return c.NotifySwipe(-40) }, false, 2},
		{func() bool { return c.NotifySwipe(-46) }, true, 3},
		{func() bool { return c.NotifySwipe(46) }, true, 2},
		{func() bool { return c.HandleKey(gesture.ArrowLeft) }, true, 1},
		{func() bool { return c.HandleKey("q") }, false, 1},
		{func() bool { return c.GoTo(99) }, true, 4},
	}
	for i, s := range steps {
		if ok := s.do(); ok != s.ok {
			t.Errorf("step %d: changed=%t", i, ok)
		}
		if p := c.Snapshot().PageIndex; p != s.page {
			t.Errorf("step %d: page %d, want %d", i, p, s.page)
		}
	}
	c.Wait()
}

func TestClose(t *testing.T) {
	doc := newFakeDoc(3)
	c := newTestController(t, doc, Config{})
	rec := record(c)
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc.setBlock(make(chan struct{}))
	c.Next()
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if !doc.closed.Load() {
		t.Error("document not closed")
	}
	if c.Next() {
		t.Error("intent accepted after Close")
	}
	if err := c.Open(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Open after Close = %v", err)
	}
	if errs := rec.errors(); len(errs) != 0 {
		t.Errorf("errors after Close: %v", errs)
	}
}

func TestReloadClosesOldDocument(t *testing.T) {
	first, second := newFakeDoc(3), newFakeDoc(5)
	docs := []*fakeDoc{first, second}
	c, err := New(Config{Source: "x.pdf", ContainerWidth: 100},
		OpenerFunc(func(ctx context.Context, source, password string) (Document, error) {
			d := docs[0]
			docs = docs[1:]
			return d, nil
		}))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Next()
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Wait()

	if !first.closed.Load() {
		t.Error("old document not closed")
	}
	if s := c.Snapshot(); s.PageIndex != 1 || s.PageCount != 5 {
		t.Errorf("snapshot after reload %+v", s)
	}
}

func TestErrorKindText(t *testing.T) {
	for _, k := range []ErrorKind{KindDocumentOpen, KindPageLoad, KindRender} {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var k2 ErrorKind
		if err := k2.UnmarshalText(text); err != nil || k2 != k {
			t.Errorf("%s: got %v, %v", text, k2, err)
		}
	}
	var k ErrorKind
	if err := k.UnmarshalText([]byte("nonsense")); err == nil {
		t.Error("unknown kind accepted")
	}
}
