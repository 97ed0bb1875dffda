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
	"errors"
	"strconv"
)

var (
	// ErrNoDocument is returned when a render is requested before a
	// document has been installed with [Scheduler.SetPages].
	ErrNoDocument = errors.New("no document loaded")

	// ErrEmptyViewport is returned when the effective scale of a render
	// is not positive, for example because the container has zero width.
	ErrEmptyViewport = errors.New("viewport has no area")
)

// PageLoadError indicates that the page geometry could not be obtained.
type PageLoadError struct {
	Page int
	Err  error
}

func (err *PageLoadError) Error() string {
	msg := "cannot load page " + strconv.Itoa(err.Page)
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

func (err *PageLoadError) Unwrap() error {
	return err.Err
}

// RenderError indicates that a page could not be rasterized.
type RenderError struct {
	Page int
	Err  error
}

func (err *RenderError) Error() string {
	msg := "cannot render page " + strconv.Itoa(err.Page)
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

func (err *RenderError) Unwrap() error {
	return err.Err
}
