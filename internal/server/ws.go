package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/conformadev/conforma/internal/job"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced by the router middleware; the upgrade itself accepts
	// any origin the middleware let through.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// handleStream upgrades to a websocket and pushes job progress updates until
// the job reaches a terminal state or the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, err := s.jobs.Get(r.Context(), id)
	if errors.Is(err, job.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Subscribe before the snapshot so no transition is missed in between.
	updates, unsubscribe := s.runner.Subscribe(id)
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	snapshot := job.Update{JobID: j.ID, Status: j.Status, Progress: j.Progress}
	if err := writeUpdate(conn, snapshot); err != nil {
		return
	}
	if j.Status.Terminal() {
		return
	}

	// Drain client frames so close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for update := range updates {
		if err := writeUpdate(conn, update); err != nil {
			return
		}
		if update.Status.Terminal() {
			return
		}
	}
}

func writeUpdate(conn *websocket.Conn, update job.Update) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(update)
}
