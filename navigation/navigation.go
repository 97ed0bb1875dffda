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

// Package navigation keeps track of the current page and zoom level.
//
// All operations are total: out-of-range requests are clamped or ignored,
// nothing panics and nothing returns an error.
package navigation

import "math"

// Zoom limits and presets.
const (
	MinZoom = 0.6
	MaxZoom = 2.5

	// ToggleThreshold separates "zoomed out" from "zoomed in" for
	// [State.ToggleZoom].
	ToggleThreshold = 1.4
	ToggleZoomedIn  = 1.6
	DefaultZoom     = 1.0
)

// zoom levels are stored in hundredths, so that repeated steps of 0.1 never
// accumulate rounding errors.
const (
	minZoom100     = 60
	maxZoom100     = 250
	toggle100      = 140
	zoomedIn100    = 160
	defaultZoom100 = 100
)

// State is the navigation state of one viewing session.
//
// The zero value describes an empty document.  A State is not safe for
// concurrent use.
type State struct {
	pageIndex int
	pageCount int
	zoom100   int
}

// New returns the state for a freshly loaded document with the given
// number of pages.
func New(pageCount int) *State {
	s := &State{}
	s.Load(pageCount)
	return s
}

// Load resets the state for a new document: the first page is selected
// and the zoom level returns to 1.0.  For an empty document the page index
// is 0.
func (s *State) Load(pageCount int) {
	if pageCount < 0 {
		pageCount = 0
	}
	next := State{pageCount: pageCount, zoom100: defaultZoom100}
	if pageCount > 0 {
		next.pageIndex = 1
	}
	*s = next
}

// PageIndex returns the current 1-based page index, or 0 if the document
// has no pages.
func (s *State) PageIndex() int {
	return s.pageIndex
}

// PageCount returns the number of pages of the document.
func (s *State) PageCount() int {
	return s.pageCount
}

// Zoom returns the current zoom level.
func (s *State) Zoom() float64 {
	return float64(s.zoom100) / 100
}

// CanGoNext reports whether there is a page after the current one.
func (s *State) CanGoNext() bool {
	return s.pageIndex < s.pageCount
}

// CanGoPrevious reports whether there is a page before the current one.
func (s *State) CanGoPrevious() bool {
	return s.pageIndex > 1
}

// GoToNext advances to the next page.  The second return value is false,
// and the index unchanged, if the current page is the last one.
func (s *State) GoToNext() (int, bool) {
	if !s.CanGoNext() {
		return s.pageIndex, false
	}
	s.pageIndex++
	return s.pageIndex, true
}

// GoToPrevious goes back to the previous page.  The second return value is
// false, and the index unchanged, if the current page is the first one.
func (s *State) GoToPrevious() (int, bool) {
	if !s.CanGoPrevious() {
		return s.pageIndex, false
	}
	s.pageIndex--
	return s.pageIndex, true
}

// GoTo selects the given page.  Out-of-range page numbers are clamped to
// the document.  The second return value reports whether the page changed.
func (s *State) GoTo(page int) (int, bool) {
	if s.pageCount == 0 {
		return 0, false
	}
	page = max(1, min(page, s.pageCount))
	if page == s.pageIndex {
		return page, false
	}
	s.pageIndex = page
	return page, true
}

// SetZoom changes the zoom level by delta.  The result is rounded to two
// decimal places and clamped to [MinZoom, MaxZoom].
func (s *State) SetZoom(delta float64) float64 {
	if math.IsNaN(delta) {
		return s.Zoom()
	}
	s.zoom100 = clampZoom(s.zoom100 + round100(delta))
	return s.Zoom()
}

// ToggleZoom switches between the default zoom level and a magnified view.
// Below [ToggleThreshold] the zoom is set to [ToggleZoomedIn], otherwise it
// is reset to [DefaultZoom].
func (s *State) ToggleZoom() float64 {
	if s.zoom100 < toggle100 {
		s.zoom100 = zoomedIn100
	} else {
		s.zoom100 = defaultZoom100
	}
	return s.Zoom()
}

// Snapshot returns an immutable copy of the state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		PageIndex:     s.pageIndex,
		PageCount:     s.pageCount,
		ZoomPercent:   s.zoom100,
		CanGoNext:     s.CanGoNext(),
		CanGoPrevious: s.CanGoPrevious(),
	}
}

// Snapshot is the state as seen by observers.
type Snapshot struct {
	PageIndex     int  `json:"pageIndex"`
	PageCount     int  `json:"pageCount"`
	ZoomPercent   int  `json:"zoomPercent"`
	CanGoNext     bool `json:"canGoNext"`
	CanGoPrevious bool `json:"canGoPrevious"`
}

// Zoom returns the zoom level of the snapshot.
func (s Snapshot) Zoom() float64 {
	return float64(s.ZoomPercent) / 100
}

func round100(x float64) int {
	if x > 10 {
		x = 10
	} else if x < -10 {
		x = -10
	}
	return int(math.Round(x * 100))
}

func clampZoom(z100 int) int {
	return max(minZoom100, min(z100, maxZoom100))
}
