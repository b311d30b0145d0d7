package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec lets Connect carry plain Go structs. The built-in JSON codec
// only accepts generated protobuf messages.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithJSON is the handler option every service is registered with.
func WithJSON() connect.HandlerOption {
	return connect.WithCodec(jsonCodec{})
}

// ClientJSON is the matching client option.
func ClientJSON() connect.ClientOption {
	return connect.WithCodec(jsonCodec{})
}
