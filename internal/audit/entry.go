package audit

// Entry is one line in the hash-chained JSONL mirror of a bus log. All
// fields are flat scalars (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type Entry struct {
	Timestamp   string `json:"ts"`
	BusID       string `json:"bus_id"`
	Position    uint64 `json:"position"`
	Kind        string `json:"kind"`
	IntentionID uint64 `json:"intention_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
	PrevHash    string `json:"prev_hash"`
}
