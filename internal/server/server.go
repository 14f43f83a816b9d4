package server

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"watchparty/internal/rooms"
	"watchparty/internal/wshub"
)

type Server struct {
	Rooms *rooms.Registry
	Hub   *wshub.Hub

	origins []string
}

func New(reg *rooms.Registry, hub *wshub.Hub, allowedOrigins []string) *Server {
	return &Server{
		Rooms:   reg,
		Hub:     hub,
		origins: allowedOrigins,
	}
}

// Handler builds the HTTP surface: the WebSocket endpoint plus health and
// metrics, wrapped in CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return c.Handler(mux)
}

func (s *Server) allowAllOrigins() bool {
	return slices.Contains(s.origins, "*")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}
