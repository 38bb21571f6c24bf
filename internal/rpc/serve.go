package rpc

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"

	"go.klb.dev/recall/internal/wire"
)

// Server multiplexes gRPC and HTTP/1.1 on one listener.
type Server struct {
	mux  cmux.CMux
	grpc *grpc.Server
	http *http.Server

	grpcLn net.Listener
	httpLn net.Listener

	wg   sync.WaitGroup
	once sync.Once
}

// NewServer prepares svc for serving on ln. Nothing is accepted until Serve.
func NewServer(ln net.Listener, svc *Service) *Server {
	m := cmux.New(ln)
	gs := grpc.NewServer(wire.ServerOptions()...)
	Register(gs, svc)

	return &Server{
		mux:    m,
		grpc:   gs,
		http:   &http.Server{Handler: HTTPHandler(svc), ReadHeaderTimeout: 5 * time.Second},
		grpcLn: m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldPrefixSendSettings("content-type", "application/grpc")),
		httpLn: m.Match(cmux.HTTP1Fast()),
	}
}

// Serve accepts connections until Stop is called or the listener fails.
func (s *Server) Serve() error {
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.grpc.Serve(s.grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, cmux.ErrListenerClosed) {
			slog.Warn("grpc server ended", "err", err)
		}
	}()
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(s.httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			slog.Warn("http server ended", "err", err)
		}
	}()

	err := s.mux.Serve()
	if isClosed(err) {
		return nil
	}
	return err
}

// Stop closes the listener and ends open streams.
func (s *Server) Stop() {
	s.once.Do(func() {
		s.mux.Close()
		s.grpc.Stop()
		_ = s.http.Close()
		s.wg.Wait()
	})
}

func isClosed(err error) bool {
	return err == nil || errors.Is(err, net.ErrClosed) || errors.Is(err, cmux.ErrListenerClosed) || errors.Is(err, cmux.ErrServerClosed)
}
