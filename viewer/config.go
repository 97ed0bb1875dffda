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
	"time"

	"seehuhn.de/go/pdfview/geometry"
	"seehuhn.de/go/pdfview/gesture"
	"seehuhn.de/go/pdfview/render"
)

// Default values for the optional fields of [Config].
const (
	DefaultPulseDuration    = 260 * time.Millisecond
	DefaultZoomStep         = 0.1
	DefaultDevicePixelRatio = 1.0
)

// Config holds the settings of a [Controller].
// Only Source is required; zero values select the defaults.
type Config struct {
	// Source names the document to show.  It is passed to the [Opener]
	// unchanged.
	Source string

	// ContainerWidth is the width of the viewport in layout pixels.
	// It can later be changed with [Controller.NotifyResize].
	ContainerWidth float64

	// DevicePixelRatio is the number of device pixels per layout pixel.
	DevicePixelRatio float64

	// Password is used to open encrypted documents.
	Password string

	// PulseDuration is how long the page-turn indication lasts.
	PulseDuration time.Duration

	// ResizeQuietPeriod is the debounce interval for resize events.
	ResizeQuietPeriod time.Duration

	// ZoomStep is the zoom increment used when ZoomIn or ZoomOut are
	// called with a non-positive step.
	ZoomStep float64

	// Sizer computes the dimensions of the drawing surface.
	Sizer geometry.Sizer

	// AfterFunc replaces [time.AfterFunc] for the resize debouncer.
	AfterFunc gesture.AfterFunc
}

func (cfg *Config) setDefaults() {
	if !(cfg.DevicePixelRatio > 0) {
		cfg.DevicePixelRatio = DefaultDevicePixelRatio
	}
	if cfg.PulseDuration <= 0 {
		cfg.PulseDuration = DefaultPulseDuration
	}
	if cfg.ResizeQuietPeriod <= 0 {
		cfg.ResizeQuietPeriod = gesture.ResizeQuietPeriod
	}
	if !(cfg.ZoomStep > 0) {
		cfg.ZoomStep = DefaultZoomStep
	}
}

// Document is an open document, as seen by the controller.
type Document interface {
	render.Pages

	// NumPages returns the number of pages.  The result may be 0.
	NumPages() int

	// Title returns the document title, or the empty string.
	Title() string

	Close() error
}

// Opener opens documents for a [Controller].
type Opener interface {
	OpenDocument(ctx context.Context, source, password string) (Document, error)
}

// OpenerFunc adapts a function to the [Opener] interface.
type OpenerFunc func(ctx context.Context, source, password string) (Document, error)

// OpenDocument calls f.
func (f OpenerFunc) OpenDocument(ctx context.Context, source, password string) (Document, error) {
	return f(ctx, source, password)
}
