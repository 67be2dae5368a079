package model

import (
	"encoding/json"
)

// EventRecord is the normalized representation of one pool event for
// storage. Seq orders records within a run; Timestamp is pool time.
type EventRecord struct {
	RunID      string          `json:"run_id"`
	Seq        uint64          `json:"seq"`
	Step       uint64          `json:"step"`
	Timestamp  uint32          `json:"timestamp"`
	Pool       string          `json:"pool"`
	EventName  string          `json:"event_name"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt string          `json:"recorded_at"`
}

// MarshalJSON ensures EventRecord is encoded with stable field names.
func (er EventRecord) MarshalJSON() ([]byte, error) {
	type Alias EventRecord
	return json.Marshal(Alias(er))
}

// UnmarshalJSON decodes an EventRecord from JSON.
func (er *EventRecord) UnmarshalJSON(data []byte) error {
	type Alias EventRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*er = EventRecord(a)
	return nil
}
