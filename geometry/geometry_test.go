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

package geometry

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFitScale(t *testing.T) {
	cases := []struct {
		container, page float64
		want            float64
	}{
		{800, 400, 2},
		{612, 612, 1},
		{306, 612, 0.5},
		{0, 612, 0},
		{800, 0, 0},
		{-10, 612, 0},
	}
	for _, c := range cases {
		got := FitScale(c.container, c.page)
		if got != c.want {
			t.Errorf("FitScale(%g, %g) = %g, want %g", c.container, c.page, got, c.want)
		}
	}
}

func TestDeviceBuffer(t *testing.T) {
	cases := []struct {
		w, h, dpr float64
		want      Buffer
	}{
		{100, 50, 1, Buffer{100, 50, 100, 50}},
		{100.7, 50.2, 2, Buffer{201, 100, 100, 50}},
		{100, 50, 1.5, Buffer{150, 75, 100, 50}},
		{100, 50, 0, Buffer{100, 50, 100, 50}},
		{0, 0, 2, Buffer{}},
	}
	for _, c := range cases {
		got := DeviceBuffer(c.w, c.h, c.dpr)
		if d := cmp.Diff(c.want, got); d != "" {
			t.Errorf("DeviceBuffer(%g, %g, %g): (-want +got)\n%s", c.w, c.h, c.dpr, d)
		}
	}
}

func TestDefaultSizer(t *testing.T) {
	page := Size{Width: 612, Height: 792}
	scale := FitScale(306, page.Width) * 1.6

	got := DefaultSizer(page, scale, 2)
	want := Buffer{BufferW: 979, BufferH: 1267, CSSW: 489, CSSH: 633}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("(-want +got)\n%s", d)
	}
	if r := got.DevicePixelRatio(); r < 2 || r > 2.01 {
		t.Errorf("DevicePixelRatio() = %g", r)
	}
}
