package server

import "github.com/go-chi/chi/v5"

// messageRoutes mounts the messages group. It has no handlers yet, so
// every request under /messages is answered with 404.
func (s *Server) messageRoutes(r chi.Router) {}
