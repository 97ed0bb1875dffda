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

// Pdfview shows a PDF file one page at a time.
//
// The current page is written to a PNG file whenever it changes, so that
// an image viewer which reloads the file follows along.  Keys: arrow
// right, space or "n" for the next page; arrow left or "p" for the
// previous page; "+" and "-" to zoom; "z" to toggle zoom; "q" to quit.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/term"

	"seehuhn.de/go/pdfview/engine"
	"seehuhn.de/go/pdfview/internal/logging"
	"seehuhn.de/go/pdfview/navigation"
	"seehuhn.de/go/pdfview/viewer"
)

var termGetSize = term.GetSize

var (
	width     = flag.Float64("width", 0, "viewport width in CSS pixels (default: follow the terminal)")
	cellWidth = flag.Float64("cell", 10, "width of a terminal column in CSS pixels")
	dpr       = flag.Float64("dpr", 1, "device pixel ratio")
	outFile   = flag.String("o", "page.png", "output file")
	password  = flag.String("password", "", "password for encrypted files")
	verbose   = flag.Bool("v", false, "log debugging information")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] file.pdf\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	err := run(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(fname string) error {
	tty := int(os.Stdin.Fd())
	interactive := term.IsTerminal(tty)

	containerWidth := *width
	if containerWidth <= 0 {
		containerWidth = terminalWidth(tty)
	}

	ctrl, err := viewer.New(viewer.Config{
		Source:           fname,
		ContainerWidth:   containerWidth,
		DevicePixelRatio: *dpr,
		Password:         *password,
	}, viewer.PDFOpener(engine.Options{}))
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctrl.OnError(func(e viewer.Error) {
		fmt.Fprintf(os.Stderr, "\r%s error: %s\r\n", e.Kind, e.Message)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = ctrl.Open(ctx)
	cancel()
	if err != nil {
		return err
	}
	if err := writeFrame(ctrl); err != nil {
		return err
	}
	status(ctrl)

	if !interactive {
		return nil
	}

	state, err := term.MakeRaw(tty)
	if err != nil {
		return err
	}
	defer term.Restore(tty, state)

	if *width <= 0 {
		stop := watchSize(ctrl, tty)
		defer stop()
	}

	// Frames are written from the state listener, so that renders
	// finishing after a resize are picked up as well.
	var (
		mu      sync.Mutex
		written = ctrl.Frame().Token
	)
	ctrl.OnStateChanged(func(navigation.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		token := ctrl.Frame().Token
		if token == written {
			return
		}
		written = token
		if err := writeFrame(ctrl); err != nil {
			logging.Logger().Error("cannot write frame", "file", *outFile, "err", err)
		}
	})

	in := bufio.NewReader(os.Stdin)
	for {
		k, err := readKey(in)
		if errors.Is(err, io.EOF) || k == keyQuit {
			fmt.Print("\r\n")
			return nil
		} else if err != nil {
			return err
		}
		if ctrl.HandleKey(k) {
			ctrl.Wait()
			status(ctrl)
		}
	}
}

// terminalWidth converts the terminal width into CSS pixels.
func terminalWidth(fd int) float64 {
	cols, _, err := termGetSize(fd)
	if err != nil || cols <= 0 {
		return 800
	}
	return float64(cols) * *cellWidth
}

// watchSize polls the terminal size and reports changes to the viewer.
func watchSize(ctrl *viewer.Controller, fd int) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		last := terminalWidth(fd)
		for {
			select {
			case <-ticker.C:
				if w := terminalWidth(fd); w != last {
					last = w
					ctrl.NotifyResize(w)
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

func writeFrame(ctrl *viewer.Controller) error {
	frame := ctrl.Frame()
	if frame.IsEmpty() {
		return nil
	}

	tmp := *outFile + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = png.Encode(out, frame.Image)
	if err != nil {
		out.Close()
		return err
	}
	err = out.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp, *outFile)
}

func status(ctrl *viewer.Controller) {
	snap := ctrl.Snapshot()
	if snap.PageCount == 0 {
		fmt.Printf("\r%s: no pages\x1b[K", ctrl.Title())
		return
	}
	fmt.Printf("\r%s: page %d of %d, zoom %d%%\x1b[K",
		ctrl.Title(), snap.PageIndex, snap.PageCount, snap.ZoomPercent)
}
