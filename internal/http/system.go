package httpapi

import (
	"context"
	"net/http"
	"time"

	"siaf-backend/internal/models"
	"siaf-backend/internal/services"

	"github.com/gorilla/websocket"
)

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}

func (s *Server) SystemStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, services.CaptureSystem(s.DB, s.Config.SystemDiskPath, s.Events))
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsSocket streams lifecycle events to admins. Browsers cannot set headers
// on a websocket handshake, so the access token travels as ?token=.
func (s *Server) EventsSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		WriteError(w, http.StatusUnauthorized, "Access token required")
		return
	}
	identity, err := s.Tokens.ParseAccessToken(token)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	if identity.Role != models.RoleAdmin {
		WriteError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.Events.Add(conn)
	defer func() {
		s.Events.Remove(conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
