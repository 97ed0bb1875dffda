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

// Package geometry computes how a page is fitted into the viewport.
//
// All functions in this package are pure.  Callers recompute the values on
// every render and every resize; nothing here is cached.
package geometry

import "math"

// Size is a width/height pair.  Page sizes are in PDF points, viewport
// sizes in CSS pixels.
type Size struct {
	Width, Height float64
}

// Scale returns the size multiplied by f.
func (s Size) Scale(f float64) Size {
	return Size{Width: s.Width * f, Height: s.Height * f}
}

// IsZero reports whether the size has no area.
func (s Size) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Buffer describes the pixel dimensions of a drawing surface.
//
// BufferW and BufferH give the size of the backing store in device pixels,
// CSSW and CSSH give the layout size.  On high-density displays the backing
// store is larger than the layout size, which keeps the output crisp
// without changing the layout.
type Buffer struct {
	BufferW, BufferH int
	CSSW, CSSH       int
}

// DevicePixelRatio returns the ratio between device and layout pixels.
// The result is 1 for an empty buffer.
func (b Buffer) DevicePixelRatio() float64 {
	if b.CSSW == 0 {
		return 1
	}
	return float64(b.BufferW) / float64(b.CSSW)
}

// FitScale returns the scale factor which makes a page of the given
// intrinsic width (at scale 1.0) exactly as wide as the container.
// The result is 0 if either argument is not positive.
func FitScale(containerWidth, intrinsicWidth float64) float64 {
	if containerWidth <= 0 || intrinsicWidth <= 0 {
		return 0
	}
	return containerWidth / intrinsicWidth
}

// DeviceBuffer computes the backing-store and layout size for a viewport
// of the given size.  A device pixel ratio which is not positive is
// treated as 1.
func DeviceBuffer(viewportW, viewportH, dpr float64) Buffer {
	if !(dpr > 0) {
		dpr = 1
	}
	return Buffer{
		BufferW: floor(viewportW * dpr),
		BufferH: floor(viewportH * dpr),
		CSSW:    floor(viewportW),
		CSSH:    floor(viewportH),
	}
}

// Sizer maps the intrinsic page size, the effective scale and the device
// pixel ratio to the dimensions of the drawing surface.
type Sizer func(intrinsic Size, scale, dpr float64) Buffer

// DefaultSizer sizes the surface to the scaled page, using [DeviceBuffer].
func DefaultSizer(intrinsic Size, scale, dpr float64) Buffer {
	vp := intrinsic.Scale(scale)
	return DeviceBuffer(vp.Width, vp.Height, dpr)
}

func floor(x float64) int {
	if !(x > 0) || math.IsInf(x, 1) {
		return 0
	}
	return int(math.Floor(x))
}
