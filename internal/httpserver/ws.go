package httpserver

import (
	"net/http"
	"strings"

	"lv-marginfx/internal/events"

	"github.com/gorilla/websocket"
)

// WSHandler streams the caller's domain events over a WebSocket.
// Browsers cannot set an Authorization header on the upgrade request,
// so the token rides a query parameter.
type WSHandler struct {
	bus      *events.Bus
	verifier *TokenVerifier
	origin   string
	upgrader websocket.Upgrader
}

func NewWSHandler(bus *events.Bus, verifier *TokenVerifier, origin string) *WSHandler {
	return &WSHandler{
		bus:      bus,
		verifier: verifier,
		origin:   origin,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.verifier.Verify(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				return
			}
			// Route only the connected user's events.
			if evt.UserID != userID {
				continue
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
