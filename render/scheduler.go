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

// Package render schedules page renders onto a shared drawing surface.
//
// At most one render is live at any time.  Requesting a new render cancels
// the previous one immediately, and the result of a render which has been
// superseded is dropped, even if it settles after the newer one.  This
// guarantees that the surface never shows a stale or torn frame.
package render

import (
	"context"
	"image"
	"sync"

	"seehuhn.de/go/pdfview/geometry"
	"seehuhn.de/go/pdfview/internal/logging"
)

// Pages is the part of the rendering engine used by the scheduler.
type Pages interface {
	// PageGeometry returns the intrinsic size of the given 1-based page at
	// scale 1.0.
	PageGeometry(ctx context.Context, page int) (geometry.Size, error)

	// RenderPage starts rasterizing the given page into dst.
	RenderPage(ctx context.Context, page int, dst *image.RGBA, vp Viewport) Task
}

// Viewport describes how a page is mapped onto the target buffer.
type Viewport struct {
	// Scale is the effective scale, mapping PDF points to layout pixels.
	Scale float64

	// DevicePixelRatio maps layout pixels to device pixels.
	DevicePixelRatio float64

	// Buffer holds the size of the target image.
	Buffer geometry.Buffer
}

// Request describes one render.
type Request struct {
	// Page is the 1-based page number.  The caller ensures that it is in
	// range.
	Page int

	// Zoom is the user-chosen zoom level, applied on top of the fit scale.
	Zoom float64

	// ContainerWidth is the width of the viewport in layout pixels.
	ContainerWidth float64

	// DevicePixelRatio is the number of device pixels per layout pixel.
	DevicePixelRatio float64

	// Sizer computes the surface dimensions.  If nil,
	// [geometry.DefaultSizer] is used.
	Sizer geometry.Sizer
}

// Result describes a settled render.
type Result struct {
	Token    uint64
	Page     int
	FitScale float64
	Scale    float64
	Buffer   geometry.Buffer

	// Superseded is set if a newer render was requested before this one
	// settled.  The output of a superseded render is never shown.
	Superseded bool
}

// Scheduler serializes render requests for one surface.
type Scheduler struct {
	surface *Surface

	mu    sync.Mutex
	pages Pages
	token uint64
	live  *canceller
}

// NewScheduler returns a scheduler which draws onto surface.
func NewScheduler(surface *Surface) *Scheduler {
	if surface == nil {
		surface = NewSurface()
	}
	return &Scheduler{surface: surface}
}

// Surface returns the surface the scheduler draws on.
func (s *Scheduler) Surface() *Surface {
	return s.surface
}

// SetPages installs a new page source.  Any render in flight is cancelled
// and the surface is cleared.
func (s *Scheduler) SetPages(p Pages) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token++
	s.abandonLocked()
	s.pages = p
	s.surface.clear()
}

// Cancel abandons the live render, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token++
	s.abandonLocked()
}

// Token returns the token of the most recent request.
func (s *Scheduler) Token() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Scheduler) abandonLocked() {
	if s.live != nil {
		s.live.abandon()
		s.live = nil
	}
}

func (s *Scheduler) isCurrent(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token == token
}

// RequestRender renders a page onto the surface.
//
// The previous render, if still in flight, is cancelled before this call
// does any work.  If another render is requested before this one settles,
// the result has Superseded set and the surface is left alone; this is
// not an error.  Failures to obtain the page geometry are reported as
// [*PageLoadError], rasterization failures as [*RenderError].  On error the
// surface keeps showing the previous frame.
//
// If ctx is cancelled by the caller, the render is abandoned and the
// context's error is returned.
func (s *Scheduler) RequestRender(ctx context.Context, req Request) (*Result, error) {
	return s.Begin(ctx, req).Run()
}

// Pending is a render request which holds a token but has not run yet.
type Pending struct {
	s     *Scheduler
	ctx   context.Context
	rctx  context.Context
	req   Request
	token uint64
	c     *canceller
	pages Pages
}

// Begin reserves a token for req and cancels the render in flight.  It
// does not block.  The caller must either call [Pending.Run] or
// [Pending.Discard] on the result; until then the request holds a
// cancellable context derived from ctx.  A later Begin, [Scheduler.Cancel]
// or [Scheduler.SetPages] also releases it.
//
// Begin allows callers to order requests under their own lock, while
// running the renders without holding it.
func (s *Scheduler) Begin(ctx context.Context, req Request) *Pending {
	rctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token++
	s.abandonLocked()
	c := &canceller{cancel: cancel}
	s.live = c
	return &Pending{
		s:     s,
		ctx:   ctx,
		rctx:  rctx,
		req:   req,
		token: s.token,
		c:     c,
		pages: s.pages,
	}
}

// Discard releases a request which will not be run.  The token stays
// used, so that no older request can reach the surface.
func (p *Pending) Discard() {
	s := p.s
	s.mu.Lock()
	if s.live == p.c {
		s.live = nil
	}
	s.mu.Unlock()
	p.c.abandon()
}

// Token returns the token reserved for the request.
func (p *Pending) Token() uint64 {
	return p.token
}

// Run performs the render and blocks until it has settled.
// See [Scheduler.RequestRender] for the meaning of the return values.
func (p *Pending) Run() (*Result, error) {
	s, req, token, c := p.s, p.req, p.token, p.c
	ctx, rctx, pages := p.ctx, p.rctx, p.pages
	defer s.settle(c)

	log := logging.Logger().With("token", token, "page", req.Page)
	log.Debug("render requested", "zoom", req.Zoom, "width", req.ContainerWidth)

	superseded := &Result{Token: token, Page: req.Page, Superseded: true}

	if pages == nil {
		return nil, &PageLoadError{Page: req.Page, Err: ErrNoDocument}
	}

	size, err := pages.PageGeometry(rctx, req.Page)
	if !s.isCurrent(token) {
		log.Debug("render superseded while loading page")
		return superseded, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &PageLoadError{Page: req.Page, Err: err}
	}

	fit := geometry.FitScale(req.ContainerWidth, size.Width)
	scale := fit * req.Zoom
	if !(scale > 0) {
		return nil, &RenderError{Page: req.Page, Err: ErrEmptyViewport}
	}
	dpr := req.DevicePixelRatio
	if !(dpr > 0) {
		dpr = 1
	}
	sizer := req.Sizer
	if sizer == nil {
		sizer = geometry.DefaultSizer
	}
	buf := sizer(size, scale, dpr)
	if buf.BufferW <= 0 || buf.BufferH <= 0 {
		return nil, &RenderError{Page: req.Page, Err: ErrEmptyViewport}
	}

	frame := image.NewRGBA(image.Rect(0, 0, buf.BufferW, buf.BufferH))
	vp := Viewport{Scale: scale, DevicePixelRatio: dpr, Buffer: buf}
	task := pages.RenderPage(rctx, req.Page, frame, vp)
	if !c.attach(task) {
		task.Wait()
		log.Debug("render superseded before rasterization")
		return superseded, nil
	}
	err = task.Wait()

	// The token check and the surface update happen under the same lock,
	// so that a newer request cannot slip in between.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token {
		log.Debug("render superseded")
		return superseded, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RenderError{Page: req.Page, Err: err}
	}
	s.surface.apply(frame, buf, req.Page, token)
	log.Debug("render applied", "scale", scale, "w", buf.BufferW, "h", buf.BufferH)

	return &Result{
		Token:    token,
		Page:     req.Page,
		FitScale: fit,
		Scale:    scale,
		Buffer:   buf,
	}, nil
}

// settle releases the resources of a request.
func (s *Scheduler) settle(c *canceller) {
	s.mu.Lock()
	if s.live == c {
		s.live = nil
	}
	s.mu.Unlock()
	c.cancel()
}
