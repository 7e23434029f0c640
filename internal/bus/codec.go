package bus

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ErrUnknownKind is returned when a wire envelope carries a kind this
// build does not recognize.
var ErrUnknownKind = errors.New("unknown payload kind")

// envelope is the wire form of a payload: a kind tag plus the encoded
// variant body. Exactly one variant per entry, enforced on decode.
type envelope struct {
	Kind Kind            `cbor:"kind"`
	Body cbor.RawMessage `cbor:"body"`
}

// EncodePayload serializes a payload into its kind-tagged CBOR envelope.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, errors.New("nil payload")
	}
	body, err := cbor.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", p.Kind(), err)
	}
	raw, err := cbor.Marshal(envelope{Kind: p.Kind(), Body: body})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return raw, nil
}

// DecodePayload parses a kind-tagged envelope back into the matching union
// variant. A kind outside the closed union fails with ErrUnknownKind.
func DecodePayload(data []byte) (Payload, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var p Payload
	switch env.Kind {
	case KindIntention:
		p = &Intention{}
	case KindActionOutput:
		p = &ActionOutput{}
	case KindInferenceInput:
		p = &InferenceInput{}
	case KindInferenceOutput:
		p = &InferenceOutput{}
	case KindCommit:
		p = &Commit{}
	case KindAbort:
		p = &Abort{}
	case KindDeciderPolicy:
		p = &DeciderPolicy{}
	case KindExtension:
		p = &Extension{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}

	if err := cbor.Unmarshal(env.Body, p); err != nil {
		return nil, fmt.Errorf("decode %s body: %w", env.Kind, err)
	}
	return deref(p), nil
}

// deref returns the value form so decoded payloads compare and switch the
// same way as locally constructed ones.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *Intention:
		return *v
	case *ActionOutput:
		return *v
	case *InferenceInput:
		return *v
	case *InferenceOutput:
		return *v
	case *Commit:
		return *v
	case *Abort:
		return *v
	case *DeciderPolicy:
		return *v
	case *Extension:
		return *v
	}
	return p
}
