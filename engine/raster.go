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
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // DCTDecode images
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/graphics"
	pdfcolor "seehuhn.de/go/pdf/graphics/color"
	pdfimage "seehuhn.de/go/pdf/graphics/image"
	"seehuhn.de/go/pdf/reader"
	"seehuhn.de/go/postscript/cid"

	"seehuhn.de/go/pdfview/internal/logging"
	"seehuhn.de/go/pdfview/render"
)

// RenderPage starts drawing a 1-based page into dst.  The page is scaled
// by vp.Scale × vp.DevicePixelRatio device pixels per PDF point, with the
// top-left corner of the page at the top-left corner of dst.
//
// The returned task stops at the next content stream operator after it has
// been cancelled.
func (d *Document) RenderPage(ctx context.Context, page int, dst *image.RGBA, vp render.Viewport) render.Task {
	return render.Go(ctx, func(ctx context.Context) error {
		d.mu.Lock()
		defer d.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := d.page(page)
		if err != nil {
			return err
		}

		dpr := vp.DevicePixelRatio
		if !(dpr > 0) {
			dpr = 1
		}
		ras := newRasterizer(ctx, d.r, dst)
		err = ras.run(info, vp.Scale*dpr)
		if ctx.Err() != nil {
			logging.Logger().Debug("render aborted", "page", page)
			return ctx.Err()
		}
		return err
	})
}

// segment is one element of a path, in device coordinates.
type segment struct {
	op  byte // 'm', 'l', 'c' or 'h'
	pts [3][2]float64
}

// rasterizer draws one page.  The content stream operators arrive through
// the EveryOp callback of a [reader.Reader], after the reader has applied
// them to its graphics state.
type rasterizer struct {
	ctx  context.Context
	rd   *reader.Reader
	dst  *image.RGBA
	ras  *vector.Rasterizer
	path []segment

	// cur and start are the current point and the start of the current
	// subpath, in user space.
	cur, start [2]float64
}

func newRasterizer(ctx context.Context, r pdf.Getter, dst *image.RGBA) *rasterizer {
	b := dst.Bounds()
	ras := &rasterizer{
		ctx: ctx,
		rd:  reader.New(r),
		dst: dst,
		ras: vector.NewRasterizer(b.Dx(), b.Dy()),
	}
	ras.rd.EveryOp = ras.op
	ras.rd.Character = ras.character
	return ras
}

func (r *rasterizer) run(info *pageInfo, k float64) error {
	draw.Draw(r.dst, r.dst.Bounds(), image.White, image.Point{}, draw.Src)
	return r.rd.ParsePage(info.dict, info.deviceMatrix(k))
}

func (r *rasterizer) gstate() *graphics.State {
	return r.rd.State.GState
}

// op handles the path construction, path painting and XObject operators.
func (r *rasterizer) op(name string, args []pdf.Object) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}

	switch name {
	case "m":
		if x, ok := numbers(args, 2); ok {
			r.moveTo(x[0], x[1])
		}
	case "l":
		if x, ok := numbers(args, 2); ok {
			r.lineTo(x[0], x[1])
		}
	case "c":
		if x, ok := numbers(args, 6); ok {
			r.curveTo(x[0], x[1], x[2], x[3], x[4], x[5])
		}
	case "v":
		if x, ok := numbers(args, 4); ok {
			r.curveTo(r.cur[0], r.cur[1], x[0], x[1], x[2], x[3])
		}
	case "y":
		if x, ok := numbers(args, 4); ok {
			r.curveTo(x[0], x[1], x[2], x[3], x[2], x[3])
		}
	case "h":
		r.closePath()
	case "re":
		if x, ok := numbers(args, 4); ok {
			r.rectangle(x[0], x[1], x[2], x[3])
		}
	case "f", "F", "f*", "S", "s", "B", "B*", "b", "b*", "n":
		r.paint(name)
	case "Do":
		if len(args) == 1 {
			if xo, ok := args[0].(pdf.Name); ok {
				return r.drawXObject(xo)
			}
		}
	}
	return nil
}

// numbers returns the first n operands as numbers.
func numbers(args []pdf.Object, n int) ([]float64, bool) {
	if len(args) < n {
		return nil, false
	}
	res := make([]float64, n)
	for i, arg := range args[:n] {
		switch x := arg.(type) {
		case pdf.Integer:
			res[i] = float64(x)
		case pdf.Real:
			res[i] = float64(x)
		case pdf.Number:
			res[i] = float64(x)
		default:
			return nil, false
		}
	}
	return res, true
}

// device maps a point from user space to device pixels.
func (r *rasterizer) device(x, y float64) [2]float64 {
	m := r.gstate().CTM
	return [2]float64{m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]}
}

func (r *rasterizer) moveTo(x, y float64) {
	r.cur = [2]float64{x, y}
	r.start = r.cur
	r.path = append(r.path, segment{op: 'm', pts: [3][2]float64{r.device(x, y)}})
}

func (r *rasterizer) lineTo(x, y float64) {
	r.cur = [2]float64{x, y}
	r.path = append(r.path, segment{op: 'l', pts: [3][2]float64{r.device(x, y)}})
}

func (r *rasterizer) curveTo(x1, y1, x2, y2, x3, y3 float64) {
	r.cur = [2]float64{x3, y3}
	r.path = append(r.path, segment{
		op:  'c',
		pts: [3][2]float64{r.device(x1, y1), r.device(x2, y2), r.device(x3, y3)},
	})
}

func (r *rasterizer) rectangle(x, y, w, h float64) {
	r.moveTo(x, y)
	r.lineTo(x+w, y)
	r.lineTo(x+w, y+h)
	r.lineTo(x, y+h)
	r.closePath()
}

func (r *rasterizer) closePath() {
	r.cur = r.start
	r.path = append(r.path, segment{op: 'h'})
}

// paint handles the path painting operators.  The even-odd rule is
// rendered like the nonzero winding rule.
func (r *rasterizer) paint(op string) {
	gs := r.gstate()
	switch op {
	case "f", "F", "f*":
		r.fill(gs.FillColor)
	case "S":
		r.stroke(gs.StrokeColor)
	case "s":
		r.closePath()
		r.stroke(gs.StrokeColor)
	case "B", "B*":
		r.fill(gs.FillColor)
		r.stroke(gs.StrokeColor)
	case "b", "b*":
		r.closePath()
		r.fill(gs.FillColor)
		r.stroke(gs.StrokeColor)
	}
	r.path = r.path[:0]
}

func (r *rasterizer) fill(c pdfcolor.Color) {
	b := r.dst.Bounds()
	r.ras.Reset(b.Dx(), b.Dy())
	// Subpaths are closed implicitly before filling.
	for i, s := range r.path {
		switch s.op {
		case 'm':
			if i > 0 {
				r.ras.ClosePath()
			}
			r.ras.MoveTo(float32(s.pts[0][0]), float32(s.pts[0][1]))
		case 'l':
			r.ras.LineTo(float32(s.pts[0][0]), float32(s.pts[0][1]))
		case 'c':
			r.ras.CubeTo(
				float32(s.pts[0][0]), float32(s.pts[0][1]),
				float32(s.pts[1][0]), float32(s.pts[1][1]),
				float32(s.pts[2][0]), float32(s.pts[2][1]))
		case 'h':
			r.ras.ClosePath()
		}
	}
	if len(r.path) > 0 {
		r.ras.ClosePath()
	}
	r.ras.Draw(r.dst, b, image.NewUniform(toRGBA(c)), image.Point{})
}

// stroke draws every segment of the path as a quadrilateral.  Curves are
// flattened first.  Joins and caps are not drawn.
func (r *rasterizer) stroke(c pdfcolor.Color) {
	gs := r.gstate()
	m := gs.CTM
	w := gs.LineWidth * math.Sqrt(math.Abs(m[0]*m[3]-m[1]*m[2])) / 2
	if w < 0.5 {
		w = 0.5
	}

	b := r.dst.Bounds()
	r.ras.Reset(b.Dx(), b.Dy())

	var start, cur [2]float64
	for _, s := range r.path {
		switch s.op {
		case 'm':
			start, cur = s.pts[0], s.pts[0]
		case 'l':
			r.line(cur, s.pts[0], w)
			cur = s.pts[0]
		case 'c':
			for _, p := range flatten(cur, s.pts, 16) {
				r.line(cur, p, w)
				cur = p
			}
		case 'h':
			r.line(cur, start, w)
			cur = start
		}
	}
	r.ras.Draw(r.dst, b, image.NewUniform(toRGBA(c)), image.Point{})
}

func (r *rasterizer) line(from, to [2]float64, w float64) {
	vx, vy := to[0]-from[0], to[1]-from[1]
	l := math.Hypot(vx, vy)
	if l == 0 {
		return
	}
	nx, ny := -vy/l*w, vx/l*w

	r.ras.MoveTo(float32(from[0]+nx), float32(from[1]+ny))
	r.ras.LineTo(float32(to[0]+nx), float32(to[1]+ny))
	r.ras.LineTo(float32(to[0]-nx), float32(to[1]-ny))
	r.ras.LineTo(float32(from[0]-nx), float32(from[1]-ny))
	r.ras.ClosePath()
}

// flatten approximates a cubic Bézier curve by n line segments and
// returns the end points of the segments.
func flatten(p0 [2]float64, ctrl [3][2]float64, n int) [][2]float64 {
	res := make([][2]float64, n)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		u := 1 - t
		a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
		res[i-1] = [2]float64{
			a*p0[0] + b*ctrl[0][0] + c*ctrl[1][0] + d*ctrl[2][0],
			a*p0[1] + b*ctrl[0][1] + c*ctrl[1][1] + d*ctrl[2][1],
		}
	}
	return res
}

// glyphWidth is the width of the box drawn for a glyph, in text space
// units per unit of font size.
const glyphWidth = 0.5

// character draws a glyph as a box of half an em, starting at the current
// text position.  The reader calls this before advancing the text matrix.
func (r *rasterizer) character(_ cid.CID, _ string) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}

	gs := r.gstate()
	fs := gs.TextFontSize
	width := glyphWidth * fs * gs.TextHorizontalScaling
	rise := gs.TextRise
	m := gs.TextMatrix.Mul(gs.CTM)
	corners := [4][2]float64{
		{0, rise},
		{width, rise},
		{width, rise + 0.7*fs},
		{0, rise + 0.7*fs},
	}

	b := r.dst.Bounds()
	r.ras.Reset(b.Dx(), b.Dy())
	for i, p := range corners {
		x := float32(m[0]*p[0] + m[2]*p[1] + m[4])
		y := float32(m[1]*p[0] + m[3]*p[1] + m[5])
		if i == 0 {
			r.ras.MoveTo(x, y)
		} else {
			r.ras.LineTo(x, y)
		}
	}
	r.ras.ClosePath()

	// half opacity, so that lines of text stay readable as lines
	col := toRGBA(gs.FillColor)
	col.A /= 2
	col.R /= 2
	col.G /= 2
	col.B /= 2
	r.ras.Draw(r.dst, b, image.NewUniform(col), image.Point{})
	return nil
}

// drawXObject draws an image XObject.  Form XObjects are skipped.
func (r *rasterizer) drawXObject(name pdf.Name) error {
	res := r.rd.State.Resources
	if res == nil {
		return nil
	}
	dict, ok := res.XObject[name].(*pdfimage.Dict)
	if !ok || dict.WriteData == nil {
		return nil
	}

	var buf bytes.Buffer
	if err := dict.WriteData(&buf); err != nil {
		logging.Logger().Debug("skipping image", "name", name, "err", err)
		return nil
	}
	src := decodeImage(buf.Bytes(), dict)
	if src == nil {
		return nil
	}

	// The image occupies the unit square of user space, with the first
	// row of samples at the top.
	m := r.gstate().CTM
	sb := src.Bounds()
	w, h := float64(sb.Dx()), float64(sb.Dy())
	s2d := f64.Aff3{
		m[0] / w, -m[2] / h, m[2] + m[4],
		m[1] / w, -m[3] / h, m[3] + m[5],
	}
	xdraw.BiLinear.Transform(r.dst, s2d, src, sb, draw.Over, nil)
	return nil
}

func decodeImage(data []byte, dict *pdfimage.Dict) image.Image {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img
	}

	w, h := dict.Width, dict.Height
	if w <= 0 || h <= 0 || dict.ColorSpace == nil || dict.BitsPerComponent != 8 {
		return nil
	}
	switch dict.ColorSpace.Family() {
	case pdfcolor.FamilyDeviceGray, pdfcolor.FamilyCalGray:
		if len(data) < w*h {
			return nil
		}
		img := image.NewGray(image.Rect(0, 0, w, h))
		copy(img.Pix, data)
		return img
	case pdfcolor.FamilyDeviceRGB, pdfcolor.FamilyCalRGB:
		if len(data) < 3*w*h {
			return nil
		}
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := range w * h {
			img.Pix[4*i] = data[3*i]
			img.Pix[4*i+1] = data[3*i+1]
			img.Pix[4*i+2] = data[3*i+2]
			img.Pix[4*i+3] = 255
		}
		return img
	}
	return nil
}

// toRGBA converts a device colour to an opaque RGBA value.
// Colours from other colour spaces are drawn in black.
func toRGBA(c pdfcolor.Color) color.RGBA {
	if c == nil {
		return color.RGBA{A: 255}
	}

	vals, _, _ := pdfcolor.Operator(c)
	switch c.ColorSpace().Family() {
	case pdfcolor.FamilyDeviceGray, pdfcolor.FamilyCalGray:
		if len(vals) >= 1 {
			g := to8(vals[0])
			return color.RGBA{R: g, G: g, B: g, A: 255}
		}
	case pdfcolor.FamilyDeviceRGB, pdfcolor.FamilyCalRGB:
		if len(vals) >= 3 {
			return color.RGBA{R: to8(vals[0]), G: to8(vals[1]), B: to8(vals[2]), A: 255}
		}
	case pdfcolor.FamilyDeviceCMYK:
		if len(vals) >= 4 {
			rr, gg, bb := color.CMYKToRGB(to8(vals[0]), to8(vals[1]), to8(vals[2]), to8(vals[3]))
			return color.RGBA{R: rr, G: gg, B: bb, A: 255}
		}
	}
	return color.RGBA{A: 255}
}

func to8(x float64) uint8 {
	return uint8(math.Round(max(0, min(1, x)) * 255))
}
