package wire

import (
	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// Codec frames RPC messages as CBOR. The client forces it per call and the
// server resolves it by name from the content-subtype, so it must be
// registered before either side handles traffic.
type Codec struct{}

func init() {
	encoding.RegisterCodec(Codec{})
}

// Marshal implements encoding.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

// Unmarshal implements encoding.Codec.
func (Codec) Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

// Name implements encoding.Codec.
func (Codec) Name() string { return "cbor" }
