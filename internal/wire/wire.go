// Package wire provides the JSON codec used on the recall IPC channel.
//
// The daemon speaks gRPC over a local socket, but its messages are plain Go
// structs (see package message) rather than generated protobuf types. The
// codec registered here under the name "json" marshals them with
// encoding/json; clients select it per call with CallOption, and the server
// picks it from the request's content-subtype.
package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	// Name is the codec name and gRPC content-subtype.
	Name = "json"

	// MaxMessageSize is the largest message either side will accept
	// (64 MiB). Image entries make listings large.
	MaxMessageSize = 64 * 1024 * 1024

	// ContentType is the media type of the HTTP surface.
	ContentType = "application/json"
)

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec marshals gRPC messages as JSON.
type Codec struct{}

// Name implements encoding.Codec.
func (Codec) Name() string { return Name }

// Marshal implements encoding.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %T: %w", v, err)
	}
	return b, nil
}

// Unmarshal implements encoding.Codec. An empty body leaves v untouched so
// that messages with no fields may be sent as zero bytes.
func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: unmarshal %T: %w", v, err)
	}
	return nil
}

// CallOption selects the JSON codec on a client call.
func CallOption() grpc.CallOption { return grpc.CallContentSubtype(Name) }

// ServerOptions are the options every recall gRPC server runs with.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.MaxRecvMsgSize(MaxMessageSize),
		grpc.MaxSendMsgSize(MaxMessageSize),
	}
}

// DialOptions are the default call options for recall clients.
func DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithDefaultCallOptions(
			CallOption(),
			grpc.MaxCallRecvMsgSize(MaxMessageSize),
			grpc.MaxCallSendMsgSize(MaxMessageSize),
		),
	}
}
