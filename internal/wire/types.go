// Package wire carries the gRPC surface of the bus service. Messages are
// CBOR-framed; the kind-tagged envelope from package bus keeps the payload
// union closed on the wire.
package wire

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "agentbus.v1.BusService"

// Entry is one log entry on the wire. Payload is the CBOR envelope produced
// by bus.EncodePayload.
type Entry struct {
	Position uint64 `cbor:"position"`
	Payload  []byte `cbor:"payload"`
}

// ProposeRequest appends a payload to the named bus.
type ProposeRequest struct {
	AgentBusID string `cbor:"agent_bus_id"`
	Payload    []byte `cbor:"payload"`
}

// ProposeResponse returns the position assigned to the appended entry.
type ProposeResponse struct {
	LogPosition uint64 `cbor:"log_position"`
}

// Filter restricts a poll to the named payload kinds. Unrecognized kinds
// match nothing.
type Filter struct {
	PayloadTypes []string `cbor:"payload_types"`
}

// PollRequest reads entries at positions >= StartLogPosition. MaxEntries <= 0
// means no limit.
type PollRequest struct {
	AgentBusID       string  `cbor:"agent_bus_id"`
	StartLogPosition uint64  `cbor:"start_log_position"`
	MaxEntries       int64   `cbor:"max_entries"`
	Filter           *Filter `cbor:"filter,omitempty"`
}

// PollResponse returns matching entries and whether the read reached the
// unfiltered tail of the log.
type PollResponse struct {
	Entries  []Entry `cbor:"entries"`
	Complete bool    `cbor:"complete"`
}
