package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageRef points at the previous envelope of the same chain
// Wire format: [timestamp, sequenceNumber]
type MessageRef struct {
	Timestamp      int64
	SequenceNumber int
}

// MarshalJSON encodes the ref as a 2-element array
func (r MessageRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{r.Timestamp, int64(r.SequenceNumber)})
}

// UnmarshalJSON decodes the 2-element array form
func (r *MessageRef) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("message ref: %w", err)
	}
	if len(fields) != 2 {
		return fmt.Errorf("message ref: expected 2 elements, got %d", len(fields))
	}

	var timestamp int64
	var seq int32
	if err := json.Unmarshal(fields[0], &timestamp); err != nil {
		return fmt.Errorf("message ref timestamp: %w", err)
	}
	if err := json.Unmarshal(fields[1], &seq); err != nil {
		return fmt.Errorf("message ref sequence number: %w", err)
	}

	r.Timestamp = timestamp
	r.SequenceNumber = int(seq)
	return nil
}

// Compare orders refs by timestamp, then sequence number
func (r MessageRef) Compare(other MessageRef) int {
	switch {
	case r.Timestamp < other.Timestamp:
		return -1
	case r.Timestamp > other.Timestamp:
		return 1
	case r.SequenceNumber < other.SequenceNumber:
		return -1
	case r.SequenceNumber > other.SequenceNumber:
		return 1
	default:
		return 0
	}
}
