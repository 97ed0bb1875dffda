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

// Package engine opens PDF files and rasterizes their pages.
//
// A [Document] implements [render.Pages], so that it can be installed in a
// [render.Scheduler].  The rasterizer is deliberately simple: it fills and
// strokes paths, draws image XObjects and shows text as solid boxes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"seehuhn.de/go/pdfview/internal/logging"
)

// ErrPageRange is returned when a page number outside the document is
// requested.
var ErrPageRange = errors.New("page number out of range")

// Options control how a document is opened.
// The zero value, or a nil pointer, selects default values.
type Options struct {
	// Password is used for encrypted files.
	Password string

	// PageCacheTTL is how long page information stays cached.
	// Zero means that cached entries never expire.
	PageCacheTTL time.Duration
}

// Document is an open PDF file.
type Document struct {
	r      *pdf.Reader
	closer io.Closer

	numPages int
	title    string

	// mu serializes access to r, which is not safe for concurrent use.
	mu    sync.Mutex
	pages *cache.Cache
}

// Open opens the PDF file with the given name.
func Open(ctx context.Context, fname string, opt *Options) (*Document, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	doc, err := NewDocument(ctx, fd, opt)
	if err != nil {
		fd.Close()
		return nil, err
	}
	doc.closer = fd
	return doc, nil
}

// NewDocument reads a PDF file from data.
// The caller must keep data open until the document is closed.
func NewDocument(ctx context.Context, data io.ReadSeeker, opt *Options) (*Document, error) {
	if opt == nil {
		opt = &Options{}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	password := opt.Password
	ropt := &pdf.ReaderOptions{
		ReadPassword: func(_ []byte, try int) string {
			if try == 0 {
				return password
			}
			return ""
		},
		ErrorHandling: pdf.ErrorHandlingReport,
	}
	r, err := pdf.NewReader(data, ropt)
	if err != nil {
		return nil, err
	}

	n, err := pagetree.NumPages(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		r.Close()
		return nil, err
	}

	doc := &Document{
		r:        r,
		numPages: n,
		pages:    cache.New(orNoExpiration(opt.PageCacheTTL), 10*time.Minute),
	}
	if meta := r.GetMeta(); meta != nil && meta.Info != nil {
		doc.title = string(meta.Info.Title)
	}

	logging.Logger().Info("document opened", "pages", n, "title", doc.title)
	return doc, nil
}

func orNoExpiration(d time.Duration) time.Duration {
	if d <= 0 {
		return cache.NoExpiration
	}
	return d
}

// NumPages returns the number of pages in the document.
func (d *Document) NumPages() int {
	return d.numPages
}

// Title returns the document title from the Info dictionary, or the empty
// string if there is none.
func (d *Document) Title() string {
	return d.title
}

// Close releases the resources held by the document.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pages.Flush()
	err := d.r.Close()
	if d.closer != nil {
		if err2 := d.closer.Close(); err == nil {
			err = err2
		}
	}
	return err
}

// page returns the information about a 1-based page number.
// The caller must hold d.mu.
func (d *Document) page(page int) (*pageInfo, error) {
	if page < 1 || page > d.numPages {
		return nil, fmt.Errorf("page %d of %d: %w", page, d.numPages, ErrPageRange)
	}

	key := strconv.Itoa(page)
	if v, ok := d.pages.Get(key); ok {
		return v.(*pageInfo), nil
	}

	_, dict, err := pagetree.GetPage(d.r, page-1)
	if err != nil {
		return nil, err
	}
	info, err := readPageInfo(d.r, dict)
	if err != nil {
		return nil, err
	}
	d.pages.Set(key, info, cache.DefaultExpiration)
	return info, nil
}
