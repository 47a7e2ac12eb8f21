package metrics

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the collectors over HTTP at /metrics.
type Server struct {
	addr   string
	logger *zap.Logger
	server *http.Server
}

func NewServer(addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{addr: addr, logger: logger.Named("metrics")}
}

// Start listens on the configured address and serves in the background.
// It returns the address actually bound.
func (s *Server) Start() (string, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", err
	}

	s.server = &http.Server{Handler: mux}
	s.logger.Info("metrics server starting", zap.String("addr", l.Addr().String()))

	go func() {
		if err := s.server.Serve(l); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return l.Addr().String(), nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
