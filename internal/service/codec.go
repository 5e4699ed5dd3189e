package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec carries plain Go structs as application/json (and
// application/connect+json for streaming). It replaces connect's protojson
// codec, which only accepts proto messages.
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

// Codec returns the option every AnalyticsService handler and client uses.
func Codec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
