package bus

import (
	"errors"
	"reflect"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestEncodeDecodeVariants(t *testing.T) {
	payloads := []Payload{
		Intention{Content: "rm -rf /tmp/scratch"},
		ActionOutput{IntentionID: 3, Content: "removed 12 files"},
		InferenceInput{Content: "plan the next step"},
		InferenceOutput{Content: "I will list the directory"},
		Commit{IntentionID: 3, Reason: "auto-commit"},
		Abort{IntentionID: 4, Reason: "human veto"},
		DeciderPolicy{Value: FirstBooleanWins},
		Extension{TypeTag: "x-heartbeat", Data: []byte{0x01, 0x02}},
	}

	for _, p := range payloads {
		raw, err := EncodePayload(p)
		if err != nil {
			t.Fatalf("encode %s: %v", p.Kind(), err)
		}
		got, err := DecodePayload(raw)
		if err != nil {
			t.Fatalf("decode %s: %v", p.Kind(), err)
		}
		if !reflect.DeepEqual(got, p) {
			t.Errorf("%s round-trip: got %#v, want %#v", p.Kind(), got, p)
		}
	}
}

func TestDecodeValueForm(t *testing.T) {
	raw, err := EncodePayload(Commit{IntentionID: 7, Reason: "ok"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodePayload(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Decoded payloads must type-switch as values, not pointers.
	if _, ok := got.(Commit); !ok {
		t.Fatalf("expected Commit value, got %T", got)
	}
	id, approved, ok := DecisionRef(got)
	if !ok || !approved || id != 7 {
		t.Fatalf("DecisionRef = (%d, %v, %v), want (7, true, true)", id, approved, ok)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	raw, err := cbor.Marshal(struct {
		Kind string          `cbor:"kind"`
		Body cbor.RawMessage `cbor:"body"`
	}{Kind: "telepathy", Body: mustMarshal(t, map[string]string{})})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_, err = DecodePayload(raw)
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestEncodeNilPayload(t *testing.T) {
	if _, err := EncodePayload(nil); err == nil {
		t.Fatal("expected error for nil payload")
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := DecodePayload([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Fatal("expected error for malformed envelope")
	}
}

func TestParsePolicy(t *testing.T) {
	for _, name := range []string{"ON_BY_DEFAULT", "OFF_BY_DEFAULT", "FIRST_BOOLEAN_WINS"} {
		p, err := ParsePolicy(name)
		if err != nil {
			t.Fatalf("ParsePolicy(%q): %v", name, err)
		}
		if string(p) != name {
			t.Errorf("ParsePolicy(%q) = %q", name, p)
		}
	}
	if _, err := ParsePolicy("on_by_default"); err == nil {
		t.Fatal("expected error for lowercase policy name")
	}
	if _, err := ParsePolicy(""); err == nil {
		t.Fatal("expected error for empty policy name")
	}
}

func TestDecisionRefNonDecisions(t *testing.T) {
	for _, p := range []Payload{
		Intention{Content: "x"},
		ActionOutput{IntentionID: 1, Content: "y"},
		DeciderPolicy{Value: OnByDefault},
		Extension{TypeTag: "x"},
	} {
		if _, _, ok := DecisionRef(p); ok {
			t.Errorf("DecisionRef(%s) reported a decision", p.Kind())
		}
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := cbor.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}
