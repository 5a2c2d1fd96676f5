package bootstrap

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
)

// Server wraps the fiber.App as a launcher.App so it runs alongside the
// background shard workers under one process.
type Server struct {
	app           *fiber.App
	serverAddress string
	logger        mlog.Logger
}

// NewServer builds a Server bound to the given address.
func NewServer(serverAddress string, app *fiber.App, logger mlog.Logger) *Server {
	if serverAddress == "" {
		serverAddress = ":3000"
	}

	return &Server{app: app, serverAddress: serverAddress, logger: logger}
}

// Run starts listening and blocks until the server stops.
func (s *Server) Run() {
	s.logger.Info("http server listening on " + s.serverAddress)

	if err := s.app.Listen(s.serverAddress); err != nil {
		s.logger.Errorf("http server stopped: %v", err)
	}
}
