// Package bus defines the data model shared by every component of the bus:
// positions, log entries, the closed payload union, and decider policies.
package bus

import "fmt"

// Position is the durable identifier of a log entry within one bus.
// Positions start at 0, are assigned at append time, and are gapless and
// strictly increasing. An intention is identified by its own position.
type Position uint64

// Kind discriminates the payload union on the wire and in poll filters.
type Kind string

const (
	KindIntention       Kind = "intention"
	KindActionOutput    Kind = "action_output"
	KindInferenceInput  Kind = "inference_input"
	KindInferenceOutput Kind = "inference_output"
	KindCommit          Kind = "commit"
	KindAbort           Kind = "abort"
	KindDeciderPolicy   Kind = "decider_policy"
	KindExtension       Kind = "extension"
)

// Payload is the closed union of entry bodies. Exactly one concrete type
// backs each entry. The union is sealed: only the types in this package
// implement it, so the wire envelope can enforce exactly-one-of semantics.
type Payload interface {
	Kind() Kind
}

// Intention is a proposed action awaiting authorization.
type Intention struct {
	Content string `cbor:"content" json:"content"`
}

// ActionOutput records the result of executing an authorized intention.
type ActionOutput struct {
	IntentionID Position `cbor:"intention_id" json:"intention_id"`
	Content     string   `cbor:"content" json:"content"`
}

// InferenceInput records a prompt sent to a model, for observability only.
type InferenceInput struct {
	Content string `cbor:"content" json:"content"`
}

// InferenceOutput records a model completion, for observability only.
type InferenceOutput struct {
	Content string `cbor:"content" json:"content"`
}

// Commit authorizes the referenced intention.
type Commit struct {
	IntentionID Position `cbor:"intention_id" json:"intention_id"`
	Reason      string   `cbor:"reason" json:"reason"`
}

// Abort rejects the referenced intention.
type Abort struct {
	IntentionID Position `cbor:"intention_id" json:"intention_id"`
	Reason      string   `cbor:"reason" json:"reason"`
}

// DeciderPolicy switches the decider policy for intentions proposed after
// the decider observes this entry. Never retroactive.
type DeciderPolicy struct {
	Value Policy `cbor:"value" json:"value"`
}

// Extension is the typed escape hatch for payloads the union does not name
// yet: an opaque blob with a type tag. Unknown tags are carried, never
// interpreted.
type Extension struct {
	TypeTag string `cbor:"type_tag" json:"type_tag"`
	Data    []byte `cbor:"data" json:"data"`
}

func (Intention) Kind() Kind       { return KindIntention }
func (ActionOutput) Kind() Kind    { return KindActionOutput }
func (InferenceInput) Kind() Kind  { return KindInferenceInput }
func (InferenceOutput) Kind() Kind { return KindInferenceOutput }
func (Commit) Kind() Kind          { return KindCommit }
func (Abort) Kind() Kind           { return KindAbort }
func (DeciderPolicy) Kind() Kind   { return KindDeciderPolicy }
func (Extension) Kind() Kind       { return KindExtension }

// LogEntry pairs a payload with the position the log assigned to it.
// Entries are immutable once appended.
type LogEntry struct {
	Position Position
	Payload  Payload
}

// DecisionRef reports whether p is a decision entry and, if so, which
// intention it references and whether it approves it.
func DecisionRef(p Payload) (id Position, approved, ok bool) {
	switch d := p.(type) {
	case Commit:
		return d.IntentionID, true, true
	case Abort:
		return d.IntentionID, false, true
	}
	return 0, false, false
}

// Policy names a decider policy. Scoped per bus id; changes are ordered
// log entries.
type Policy string

const (
	// OnByDefault commits every new intention immediately.
	OnByDefault Policy = "ON_BY_DEFAULT"
	// OffByDefault aborts every new intention immediately.
	OffByDefault Policy = "OFF_BY_DEFAULT"
	// FirstBooleanWins defers to externally proposed decisions; the entry
	// with the lowest position referencing an intention is authoritative.
	FirstBooleanWins Policy = "FIRST_BOOLEAN_WINS"
)

// ParsePolicy validates a policy name from a flag or config file.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case OnByDefault, OffByDefault, FirstBooleanWins:
		return p, nil
	}
	return "", fmt.Errorf("unknown policy %q (want ON_BY_DEFAULT, OFF_BY_DEFAULT, or FIRST_BOOLEAN_WINS)", s)
}
