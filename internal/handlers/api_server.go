// internal/handlers/api_server.go
package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/wordrelay/relay/internal/session"
)

// Server bundles the session manager with the logger for the HTTP and
// WebSocket handlers.
type Server struct {
	Logger  *logrus.Logger
	Manager *session.Manager
}

// NewServer wires a handler server over a session manager.
func NewServer(logger *logrus.Logger, mgr *session.Manager) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{Logger: logger, Manager: mgr}
}
