package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/hub"
	"go.klb.dev/recall/internal/item"
	"go.klb.dev/recall/internal/message"
)

// watchBuffer is how many events a slow Watch stream may fall behind before
// events are dropped.
const watchBuffer = 32

// Engine is what the service needs from a running engine.
type Engine interface {
	Store() *history.Store
	Hub() *hub.Hub
	Status() message.StatusResponse
}

// Service implements HistoryServer on top of an Engine.
type Service struct {
	e       Engine
	version string
	watches atomic.Uint64
	log     *slog.Logger
}

// NewService returns a Service for e. version is reported by Status.
func NewService(e Engine, version string) *Service {
	return &Service{e: e, version: version, log: slog.With("component", "rpc")}
}

// List implements HistoryServer.List.
func (s *Service) List(_ context.Context, req *message.ListRequest) (*message.ItemsResponse, error) {
	view, err := message.ParseView(string(req.View))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return message.NewItemsResponse(s.items(view)), nil
}

func (s *Service) items(v message.View) []item.Item {
	if v == message.ViewDisplay {
		return s.e.Store().Display()
	}
	return s.e.Store().Items()
}

// Get implements HistoryServer.Get.
func (s *Service) Get(_ context.Context, req *message.IDRequest) (*message.ItemResponse, error) {
	if err := requireID(req.ID); err != nil {
		return nil, err
	}
	return message.NewItemResponse(s.e.Store().Get(req.ID)), nil
}

// Search implements HistoryServer.Search.
func (s *Service) Search(_ context.Context, req *message.SearchRequest) (*message.ItemsResponse, error) {
	return message.NewItemsResponse(s.e.Store().Search(req.Query)), nil
}

// Copy implements HistoryServer.Copy. The response carries the new entry.
func (s *Service) Copy(ctx context.Context, req *message.IDRequest) (*message.ItemResponse, error) {
	if err := requireID(req.ID); err != nil {
		return nil, err
	}
	it, ok, err := s.e.Store().Copy(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return message.NewItemResponse(it, ok), nil
}

// Pin implements HistoryServer.Pin.
func (s *Service) Pin(ctx context.Context, req *message.IDRequest) (*message.FoundResponse, error) {
	return s.found(ctx, req.ID, s.e.Store().Pin)
}

// Unpin implements HistoryServer.Unpin.
func (s *Service) Unpin(ctx context.Context, req *message.IDRequest) (*message.FoundResponse, error) {
	return s.found(ctx, req.ID, s.e.Store().Unpin)
}

// TogglePin implements HistoryServer.TogglePin.
func (s *Service) TogglePin(ctx context.Context, req *message.IDRequest) (*message.FoundResponse, error) {
	return s.found(ctx, req.ID, s.e.Store().TogglePin)
}

// Remove implements HistoryServer.Remove.
func (s *Service) Remove(ctx context.Context, req *message.IDRequest) (*message.FoundResponse, error) {
	return s.found(ctx, req.ID, s.e.Store().Remove)
}

// Rename implements HistoryServer.Rename.
func (s *Service) Rename(ctx context.Context, req *message.RenameRequest) (*message.FoundResponse, error) {
	return s.found(ctx, req.ID, func(ctx context.Context, id string) (bool, error) {
		return s.e.Store().Rename(ctx, id, req.Name)
	})
}

func (s *Service) found(ctx context.Context, id string, fn func(context.Context, string) (bool, error)) (*message.FoundResponse, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	ok, err := fn(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &message.FoundResponse{Found: ok}, nil
}

// Clear implements HistoryServer.Clear.
func (s *Service) Clear(ctx context.Context, _ *message.Empty) (*message.ClearResponse, error) {
	n, err := s.e.Store().Clear(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	s.log.Info("history cleared", "removed", n)
	return &message.ClearResponse{Removed: n}, nil
}

// Status implements HistoryServer.Status.
func (s *Service) Status(_ context.Context, _ *message.Empty) (*message.StatusResponse, error) {
	st := s.e.Status()
	st.Version = s.version
	return &st, nil
}

// Watch implements HistoryServer.Watch.
func (s *Service) Watch(req *message.WatchRequest, stream WatchServer) error {
	ctx := stream.Context()
	id := fmt.Sprintf("%s/watch/%d", addrFromCtx(ctx), s.watches.Add(1))

	w := hub.NewChanWatcher(id, watchBuffer)
	s.e.Hub().Register(w)
	defer s.e.Hub().Unregister(w)

	s.log.Info("watch started", "watcher", id, "full", req.Full)
	defer s.log.Info("watch ended", "watcher", id)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.Events():
			if err := stream.Send(message.NewWatchResponse(ev, req.Full)); err != nil {
				return err
			}
		}
	}
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return status.Error(codes.InvalidArgument, "id is required")
	}
	return nil
}

// toStatus maps store errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, history.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, item.ErrInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func addrFromCtx(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if a := p.Addr.String(); a != "" {
			return a
		}
	}
	return "local"
}
