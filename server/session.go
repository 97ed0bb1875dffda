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

package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"seehuhn.de/go/pdfview/internal/logging"
	"seehuhn.de/go/pdfview/library"
	"seehuhn.de/go/pdfview/navigation"
	"seehuhn.de/go/pdfview/viewer"
)

const (
	pingPeriod = 30 * time.Second
	pongWait   = 60 * time.Second
	writeWait  = 10 * time.Second
)

// message is sent to websocket clients.
type message struct {
	Type  string               `json:"type"` // "state" or "error"
	State *navigation.Snapshot `json:"state,omitempty"`
	Error *viewer.Error        `json:"error,omitempty"`
}

// session is one viewer, shared by all clients which know its ID.
type session struct {
	id    string
	entry library.Entry
	ctrl  *viewer.Controller

	mu     sync.Mutex
	subs   map[chan message]struct{}
	closed bool
}

func newSession(id string, entry library.Entry, ctrl *viewer.Controller) *session {
	s := &session{
		id:    id,
		entry: entry,
		ctrl:  ctrl,
		subs:  make(map[chan message]struct{}),
	}
	ctrl.OnStateChanged(func(snap navigation.Snapshot) {
		s.broadcast(message{Type: "state", State: &snap})
	})
	ctrl.OnError(func(e viewer.Error) {
		s.broadcast(message{Type: "error", Error: &e})
	})
	return s
}

func (s *session) state() stateResponse {
	return stateResponse{
		Session:  s.id,
		Title:    s.ctrl.Title(),
		Phase:    s.ctrl.Phase(),
		State:    s.ctrl.Snapshot(),
		Scale:    s.ctrl.LastRender().Scale,
		Flipping: s.ctrl.Flipping(),
	}
}

// subscribe returns a channel which receives all future messages.
// The channel is closed when the session ends.
func (s *session) subscribe() (chan message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	ch := make(chan message, 16)
	s.subs[ch] = struct{}{}
	return ch, true
}

func (s *session) unsubscribe(ch chan message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
}

// broadcast sends m to all subscribers.  Slow subscribers miss messages.
func (s *session) broadcast(m message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- m:
		default:
		}
	}
}

func (s *session) close() {
	s.mu.Lock()
	s.closed = true
	for ch := range s.subs {
		close(ch)
	}
	s.subs = nil
	s.mu.Unlock()

	if err := s.ctrl.Close(); err != nil {
		logging.Logger().Warn("closing document", "session", s.id, "err", err)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	log := logging.Logger().With("session", sess.id)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		log.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	msgs, ok := sess.subscribe()
	if !ok {
		return
	}
	defer sess.unsubscribe(msgs)

	// The read loop only handles control messages and notices when the
	// client goes away.
	done := make(chan struct{})
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("websocket read failed", "err", err)
				}
				return
			}
		}
	}()

	snap := sess.ctrl.Snapshot()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(message{Type: "state", State: &snap}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case m, ok := <-msgs:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(m); err != nil {
				log.Debug("websocket write failed", "err", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
