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

// Package server exposes viewer sessions over HTTP.
//
// A client lists the documents in the library, opens a session for one of
// them, sends intents such as "next" or "zoom-in", and fetches the
// rendered page as a PNG image.  State changes and errors are pushed over
// a websocket.
package server

import (
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"seehuhn.de/go/pdfview/gesture"
	"seehuhn.de/go/pdfview/internal/logging"
	"seehuhn.de/go/pdfview/library"
	"seehuhn.de/go/pdfview/navigation"
	"seehuhn.de/go/pdfview/viewer"
)

// Config holds the settings of a [Server].
type Config struct {
	// LibraryDir is the directory holding the PDF files.
	LibraryDir string

	// ContainerWidth is the initial viewport width of new sessions.
	// Clients can override it with the "width" query parameter.
	ContainerWidth float64

	// DevicePixelRatio is used for all sessions.
	DevicePixelRatio float64

	// SessionTTL is how long an unused session is kept.
	SessionTTL time.Duration

	// IntentRate is the number of intents per minute accepted from one
	// IP address.
	IntentRate int

	// Opener opens the documents.  If nil, PDF files are read from disk.
	Opener viewer.Opener

	// RequestLog enables logging of every HTTP request.
	RequestLog bool
}

// Default values for [Config].
const (
	DefaultContainerWidth = 800
	DefaultSessionTTL     = 30 * time.Minute
	DefaultIntentRate     = 600
)

// Server is an [http.Handler] serving the viewer API.
type Server struct {
	cfg      Config
	router   chi.Router
	sessions *cache.Cache
}

// New returns a server for the given configuration.
func New(cfg Config) *Server {
	if !(cfg.ContainerWidth > 0) {
		cfg.ContainerWidth = DefaultContainerWidth
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.IntentRate <= 0 {
		cfg.IntentRate = DefaultIntentRate
	}

	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		sessions: cache.New(cfg.SessionTTL, cfg.SessionTTL/2),
	}
	s.sessions.OnEvicted(func(id string, v interface{}) {
		logging.Logger().Info("session closed", "session", id)
		v.(*session).close()
	})
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	if s.cfg.RequestLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Get("/comics", s.handleList)
	r.Post("/comics/{id}/sessions", s.handleOpen)

	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/frame.png", s.handleFrame)
		r.Get("/ws", s.handleWebSocket)
		r.Delete("/", s.handleClose)
		r.With(httprate.LimitByIP(s.cfg.IntentRate, time.Minute)).
			Post("/{intent}", s.handleIntent)
	})
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close closes all sessions.
func (s *Server) Close() {
	for id := range s.sessions.Items() {
		s.sessions.Delete(id)
	}
}

// stateResponse is the JSON representation of a session.
type stateResponse struct {
	Session  string              `json:"session"`
	Title    string              `json:"title"`
	Phase    viewer.Phase        `json:"phase"`
	State    navigation.Snapshot `json:"state"`
	Scale    float64             `json:"scale,omitempty"`
	Flipping bool                `json:"flipping,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger().Debug("cannot write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := library.Scan(s.cfg.LibraryDir)
	if err != nil {
		logging.Logger().Error("cannot scan library", "dir", s.cfg.LibraryDir, "err", err)
		writeError(w, http.StatusInternalServerError, "cannot read library")
		return
	}
	if entries == nil {
		entries = []library.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	entries, err := library.Scan(s.cfg.LibraryDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot read library")
		return
	}
	entry, ok := library.Lookup(entries, chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "no such comic")
		return
	}

	width := s.cfg.ContainerWidth
	if q := r.URL.Query().Get("width"); q != "" {
		width, err = strconv.ParseFloat(q, 64)
		if err != nil || !(width > 0) {
			writeError(w, http.StatusBadRequest, "invalid width")
			return
		}
	}

	ctrl, err := viewer.New(viewer.Config{
		Source:           entry.Path,
		ContainerWidth:   width,
		DevicePixelRatio: s.cfg.DevicePixelRatio,
	}, s.cfg.Opener)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sess := newSession(uuid.New().String(), entry, ctrl)

	err = ctrl.Open(r.Context())
	var openErr *viewer.DocumentOpenError
	if errors.As(err, &openErr) {
		ctrl.Close()
		writeError(w, http.StatusUnprocessableEntity, "cannot open "+entry.ID)
		return
	} else if err != nil {
		ctrl.Close()
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	s.sessions.Set(sess.id, sess, cache.DefaultExpiration)
	logging.Logger().Info("session opened", "session", sess.id, "comic", entry.ID)
	writeJSON(w, http.StatusCreated, sess.state())
}

// lookup finds the session named in the request and extends its lifetime.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := chi.URLParam(r, "sid")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	v, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no such session")
		return nil, false
	}
	s.sessions.Set(id, v, cache.DefaultExpiration)
	return v.(*session), true
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.state())
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	ctrl := sess.ctrl

	name := chi.URLParam(r, "intent")
	switch name {
	case "resize":
		width, err := strconv.ParseFloat(r.URL.Query().Get("width"), 64)
		if err != nil || !(width > 0) {
			writeError(w, http.StatusBadRequest, "invalid width")
			return
		}
		ctrl.NotifyResize(width)
		writeJSON(w, http.StatusAccepted, sess.state())
		return
	case "swipe":
		dx, err := strconv.ParseFloat(r.URL.Query().Get("dx"), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dx")
			return
		}
		ctrl.NotifySwipe(dx)
	case "goto":
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		ctrl.GoTo(page)
	default:
		intent := gesture.ParseIntent(name)
		if intent == gesture.None {
			writeError(w, http.StatusNotFound, "unknown intent "+strconv.Quote(name))
			return
		}
		ctrl.Dispatch(intent)
	}

	ctrl.Wait()
	writeJSON(w, http.StatusOK, sess.state())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	frame := sess.ctrl.Frame()
	if frame.IsEmpty() {
		writeError(w, http.StatusNotFound, "nothing rendered yet")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Page", strconv.Itoa(frame.Page))
	if err := png.Encode(w, frame.Image); err != nil {
		logging.Logger().Debug("cannot write frame", "err", err)
	}
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sid")
	if _, ok := s.sessions.Get(id); !ok {
		writeError(w, http.StatusNotFound, "no such session")
		return
	}
	s.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}
