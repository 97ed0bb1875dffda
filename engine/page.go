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

package engine

import (
	"context"
	"errors"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf"

	"seehuhn.de/go/pdfview/geometry"
)

var errNoMediaBox = errors.New("page has no valid MediaBox")

// pageInfo holds the information about a page which is needed before
// any content is drawn.
type pageInfo struct {
	dict   pdf.Dict
	box    pdf.Rectangle
	rotate int // one of 0, 90, 180, 270
}

func readPageInfo(r pdf.Getter, dict pdf.Dict) (*pageInfo, error) {
	box, err := visibleBox(r, dict)
	if err != nil {
		return nil, err
	}

	rotate := 0
	if obj, ok := dict["Rotate"]; ok {
		x, err := pdf.GetNumber(r, obj)
		if err != nil {
			return nil, err
		}
		rotate = normalizeRotation(float64(x))
	}

	return &pageInfo{dict: dict, box: *box, rotate: rotate}, nil
}

// visibleBox returns the CropBox of a page if present, and the MediaBox
// otherwise.
func visibleBox(r pdf.Getter, dict pdf.Dict) (*pdf.Rectangle, error) {
	if obj, ok := dict["CropBox"]; ok {
		box, err := pdf.GetRectangle(r, obj)
		if err == nil && box != nil && box.URx > box.LLx && box.URy > box.LLy {
			return box, nil
		}
	}

	box, err := pdf.GetRectangle(r, dict["MediaBox"])
	if err != nil {
		return nil, err
	}
	if box == nil || !(box.URx > box.LLx && box.URy > box.LLy) {
		return nil, errNoMediaBox
	}
	return box, nil
}

// normalizeRotation maps a /Rotate value to 0, 90, 180 or 270.
// Values which are not a multiple of 90 are ignored.
func normalizeRotation(x float64) int {
	if x != math.Trunc(x) {
		return 0
	}
	rot := int(x) % 360
	if rot < 0 {
		rot += 360
	}
	if rot%90 != 0 {
		return 0
	}
	return rot
}

// size returns the displayed size of the page at scale 1.0.
func (p *pageInfo) size() geometry.Size {
	w := p.box.URx - p.box.LLx
	h := p.box.URy - p.box.LLy
	if p.rotate == 90 || p.rotate == 270 {
		w, h = h, w
	}
	return geometry.Size{Width: w, Height: h}
}

// deviceMatrix maps default user space to device pixels, for an image
// where k device pixels correspond to one PDF point.  The top-left corner
// of the displayed page maps to the origin.
func (p *pageInfo) deviceMatrix(k float64) matrix.Matrix {
	b := p.box
	switch p.rotate {
	case 90:
		return matrix.Matrix{0, k, k, 0, -b.LLy * k, -b.LLx * k}
	case 180:
		return matrix.Matrix{-k, 0, 0, k, b.URx * k, -b.LLy * k}
	case 270:
		return matrix.Matrix{0, -k, -k, 0, b.URy * k, b.URx * k}
	default:
		return matrix.Matrix{k, 0, 0, -k, -b.LLx * k, b.URy * k}
	}
}

// PageGeometry returns the size of a 1-based page at scale 1.0, in PDF
// points.  Rotated pages report their displayed size.
func (d *Document) PageGeometry(ctx context.Context, page int) (geometry.Size, error) {
	if err := ctx.Err(); err != nil {
		return geometry.Size{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	info, err := d.page(page)
	if err != nil {
		return geometry.Size{}, err
	}
	return info.size(), nil
}
