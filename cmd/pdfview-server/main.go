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

// Pdfview-server serves the PDF files in a directory to web clients, one
// page at a time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seehuhn.de/go/pdfview/internal/logging"
	"seehuhn.de/go/pdfview/server"
)

var (
	addr    = flag.String("addr", "localhost:8080", "address to listen on")
	dir     = flag.String("dir", ".", "directory containing the PDF files")
	width   = flag.Float64("width", server.DefaultContainerWidth, "default viewport width in CSS pixels")
	dpr     = flag.Float64("dpr", 1, "device pixel ratio")
	ttl     = flag.Duration("ttl", server.DefaultSessionTTL, "lifetime of unused sessions")
	rate    = flag.Int("rate", server.DefaultIntentRate, "intents per minute and client")
	verbose = flag.Bool("v", false, "log every request")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if st, err := os.Stat(*dir); err != nil || !st.IsDir() {
		fmt.Fprintf(os.Stderr, "%s: not a directory\n", *dir)
		os.Exit(1)
	}

	srv := server.New(server.Config{
		LibraryDir:       *dir,
		ContainerWidth:   *width,
		DevicePixelRatio: *dpr,
		SessionTTL:       *ttl,
		IntentRate:       *rate,
		RequestLog:       *verbose,
	})
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logging.Logger().Info("listening", "addr", *addr, "dir", *dir)
	err := httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
