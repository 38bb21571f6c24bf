package rpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.klb.dev/recall/internal/message"
	"go.klb.dev/recall/internal/wire"
)

// Dialer opens a raw connection to the daemon.
type Dialer func(ctx context.Context) (net.Conn, error)

// Dial returns a client connection that reaches the daemon through dial. The
// connection is established lazily on the first call.
func Dial(dial Dialer) (*grpc.ClientConn, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return dial(ctx)
		}),
	}, wire.DialOptions()...)
	return grpc.NewClient("passthrough:///recall", opts...)
}

// Client calls the History service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.cc.Invoke(ctx, fullMethod(method), in, out, wire.CallOption())
}

func call[T any](ctx context.Context, c *Client, method string, in any) (*T, error) {
	out := new(T)
	if err := c.invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) List(ctx context.Context, view message.View) (*message.ItemsResponse, error) {
	return call[message.ItemsResponse](ctx, c, "List", &message.ListRequest{View: view})
}

func (c *Client) Get(ctx context.Context, id string) (*message.ItemResponse, error) {
	return call[message.ItemResponse](ctx, c, "Get", &message.IDRequest{ID: id})
}

func (c *Client) Search(ctx context.Context, query string) (*message.ItemsResponse, error) {
	return call[message.ItemsResponse](ctx, c, "Search", &message.SearchRequest{Query: query})
}

// Copy re-copies the item and returns the entry it created.
func (c *Client) Copy(ctx context.Context, id string) (*message.ItemResponse, error) {
	return call[message.ItemResponse](ctx, c, "Copy", &message.IDRequest{ID: id})
}

func (c *Client) Pin(ctx context.Context, id string) (bool, error) {
	return c.found(ctx, "Pin", &message.IDRequest{ID: id})
}

func (c *Client) Unpin(ctx context.Context, id string) (bool, error) {
	return c.found(ctx, "Unpin", &message.IDRequest{ID: id})
}

func (c *Client) TogglePin(ctx context.Context, id string) (bool, error) {
	return c.found(ctx, "TogglePin", &message.IDRequest{ID: id})
}

func (c *Client) Rename(ctx context.Context, id, name string) (bool, error) {
	return c.found(ctx, "Rename", &message.RenameRequest{ID: id, Name: name})
}

func (c *Client) Remove(ctx context.Context, id string) (bool, error) {
	return c.found(ctx, "Remove", &message.IDRequest{ID: id})
}

func (c *Client) found(ctx context.Context, method string, in any) (bool, error) {
	var out message.FoundResponse
	if err := c.invoke(ctx, method, in, &out); err != nil {
		return false, err
	}
	return out.Found, nil
}

func (c *Client) Clear(ctx context.Context) (int, error) {
	var out message.ClearResponse
	if err := c.invoke(ctx, "Clear", &message.Empty{}, &out); err != nil {
		return 0, err
	}
	return out.Removed, nil
}

func (c *Client) Status(ctx context.Context) (*message.StatusResponse, error) {
	return call[message.StatusResponse](ctx, c, "Status", &message.Empty{})
}

// Watch opens a change stream. Cancel ctx to end it.
func (c *Client) Watch(ctx context.Context, full bool) (*WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("Watch"), wire.CallOption())
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&message.WatchRequest{Full: full}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchClient{stream: stream}, nil
}

// WatchClient receives events from a Watch stream.
type WatchClient struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event. It returns io.EOF when the daemon ends the
// stream.
func (w *WatchClient) Recv() (*message.WatchResponse, error) {
	m := new(message.WatchResponse)
	if err := w.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
