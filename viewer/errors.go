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
	"errors"
	"fmt"

	"seehuhn.de/go/pdfview/render"
)

// ErrClosed is returned by operations on a closed [Controller].
var ErrClosed = errors.New("viewer closed")

// ConfigurationError indicates an unusable [Config].
type ConfigurationError struct {
	Field  string
	Reason string
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", err.Field, err.Reason)
}

// DocumentOpenError indicates that the document could not be opened.
// The controller is in the [PhaseError] phase afterwards.
type DocumentOpenError struct {
	Source string
	Err    error
}

func (err *DocumentOpenError) Error() string {
	return fmt.Sprintf("cannot open %q: %v", err.Source, err.Err)
}

func (err *DocumentOpenError) Unwrap() error {
	return err.Err
}

// ErrorKind classifies the errors reported to [Controller.OnError]
// listeners.
type ErrorKind int

// These are the error kinds.
const (
	KindDocumentOpen ErrorKind = iota + 1
	KindPageLoad
	KindRender
)

func (k ErrorKind) String() string {
	switch k {
	case KindDocumentOpen:
		return "document-open"
	case KindPageLoad:
		return "page-load"
	case KindRender:
		return "render"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (k *ErrorKind) UnmarshalText(text []byte) error {
	for _, kind := range []ErrorKind{KindDocumentOpen, KindPageLoad, KindRender} {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", text)
}

// Error is the payload delivered to error listeners.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`

	// Page is the page concerned, or 0 for document errors.
	Page int `json:"page,omitempty"`

	Err error `json:"-"`
}

// classify converts an error from opening or rendering into the listener
// payload.  The second return value is false for errors which must not be
// reported.
func classify(err error) (Error, bool) {
	var (
		openErr   *DocumentOpenError
		loadErr   *render.PageLoadError
		renderErr *render.RenderError
	)
	switch {
	case errors.As(err, &openErr):
		return Error{Kind: KindDocumentOpen, Message: err.Error(), Err: err}, true
	case errors.As(err, &loadErr):
		return Error{Kind: KindPageLoad, Message: err.Error(), Page: loadErr.Page, Err: err}, true
	case errors.As(err, &renderErr):
		return Error{Kind: KindRender, Message: err.Error(), Page: renderErr.Page, Err: err}, true
	}
	return Error{}, false
}
