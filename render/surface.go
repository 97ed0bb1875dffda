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
	"image"
	"image/draw"
	"sync"

	"seehuhn.de/go/pdfview/geometry"
)

// Surface is the drawing surface shown to the user.
//
// Only the [Scheduler] writes to a Surface, and only for the render which
// holds the current token.  Readers obtain copies via [Surface.Frame].
type Surface struct {
	mu    sync.RWMutex
	img   *image.RGBA
	buf   geometry.Buffer
	page  int
	token uint64
}

// NewSurface returns an empty surface.
func NewSurface() *Surface {
	return &Surface{img: image.NewRGBA(image.Rectangle{})}
}

// Frame is a copy of the visible contents of a [Surface].
type Frame struct {
	Image  *image.RGBA
	Buffer geometry.Buffer
	Page   int
	Token  uint64
}

// IsEmpty reports whether nothing has been drawn yet.
func (f Frame) IsEmpty() bool {
	return f.Token == 0
}

// Frame returns a copy of the current contents of the surface.
func (s *Surface) Frame() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img := image.NewRGBA(s.img.Rect)
	copy(img.Pix, s.img.Pix)
	return Frame{Image: img, Buffer: s.buf, Page: s.page, Token: s.token}
}

// Buffer returns the current dimensions of the surface.
func (s *Surface) Buffer() geometry.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf
}

// apply resizes the backing buffer to buf and draws src onto it.
func (s *Surface) apply(src *image.RGBA, buf geometry.Buffer, page int, token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := image.Rect(0, 0, buf.BufferW, buf.BufferH)
	if s.img.Rect != r {
		s.img = image.NewRGBA(r)
	}
	draw.Draw(s.img, r, src, src.Rect.Min, draw.Src)
	s.buf = buf
	s.page = page
	s.token = token
}

// clear empties the surface, for example when a new document is loaded.
func (s *Surface) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.img = image.NewRGBA(image.Rectangle{})
	s.buf = geometry.Buffer{}
	s.page = 0
	s.token = 0
}
