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

// Package gesture turns raw input events into navigation intents.
package gesture

import (
	"math"
	"strconv"
)

// Intent is a navigation request derived from user input.
type Intent int

// These are the supported intents.
const (
	None Intent = iota
	Next
	Previous
	ZoomIn
	ZoomOut
	ToggleZoom
)

func (i Intent) String() string {
	switch i {
	case None:
		return "none"
	case Next:
		return "next"
	case Previous:
		return "previous"
	case ZoomIn:
		return "zoom-in"
	case ZoomOut:
		return "zoom-out"
	case ToggleZoom:
		return "toggle-zoom"
	default:
		return "intent(" + strconv.Itoa(int(i)) + ")"
	}
}

// ParseIntent is the inverse of [Intent.String].
// Unknown names map to [None].
func ParseIntent(s string) Intent {
	for i := Next; i <= ToggleZoom; i++ {
		if i.String() == s {
			return i
		}
	}
	return None
}

// SwipeThreshold is the minimal horizontal travel, in pixels, for a touch
// gesture to count as a swipe.
const SwipeThreshold = 45

// SwipeIntent maps the horizontal travel of a completed touch gesture to
// an intent.  Swiping to the left turns to the next page.
func SwipeIntent(dx float64) Intent {
	if math.IsNaN(dx) || math.Abs(dx) < SwipeThreshold {
		return None
	}
	if dx < 0 {
		return Next
	}
	return Previous
}

// Swipe tracks a single touch gesture.
// The zero value is idle and ready to use.
type Swipe struct {
	tracking bool
	startX   float64
}

// Start begins tracking a touch at horizontal position x.
// A touch which is already being tracked is abandoned.
func (s *Swipe) Start(x float64) {
	s.tracking = true
	s.startX = x
}

// End finishes the current touch at horizontal position x and returns the
// resulting intent.  Without a preceding [Swipe.Start], End returns [None].
func (s *Swipe) End(x float64) Intent {
	if !s.tracking {
		return None
	}
	s.tracking = false
	return SwipeIntent(x - s.startX)
}

// Cancel abandons the current touch, if any.
func (s *Swipe) Cancel() {
	s.tracking = false
}

// Tracking reports whether a touch is in progress.
func (s *Swipe) Tracking() bool {
	return s.tracking
}

// Key identifies a keyboard key.
type Key string

// Keys with a predefined meaning.
const (
	ArrowLeft  Key = "ArrowLeft"
	ArrowRight Key = "ArrowRight"
)

// KeyIntent maps a key press to an intent.  There is no repeat
// suppression; auto-repeat at the document boundary is harmless since
// navigation is a no-op there.
func KeyIntent(k Key) Intent {
	switch k {
	case ArrowRight:
		return Next
	case ArrowLeft:
		return Previous
	case "+", "=":
		return ZoomIn
	case "-":
		return ZoomOut
	case "z", "Z":
		return ToggleZoom
	}
	return None
}

// DoubleActivation returns the intent for a double click or double tap.
func DoubleActivation() Intent {
	return ToggleZoom
}
