package frame

import (
	"encoding/json"
	"time"
)

// MarshalText encodes a Kind as its wire type name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a wire type name into a Kind.
func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}

// MarshalJSON emits JSON payloads as-is and opaque payloads as a JSON string.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.IsJSON() {
		return p.JSON, nil
	}
	return json.Marshal(p.Raw)
}

type frameJSON struct {
	Kind       Kind      `json:"kind"`
	Type       string    `json:"type"`
	ID         string    `json:"id,omitempty"`
	Payload    Payload   `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
}

// MarshalJSON encodes the frame for API consumers.
func (f Frame) MarshalJSON() ([]byte, error) {
	return json.Marshal(frameJSON(f))
}

// UnmarshalJSON decodes a frame produced by MarshalJSON. A payload encoded as
// a JSON string comes back as opaque text, since the two are
// indistinguishable on the wire.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type       string          `json:"type"`
		ID         string          `json:"id"`
		Payload    json.RawMessage `json:"payload"`
		ReceivedAt time.Time       `json:"received_at"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := string(aux.Payload)
	var s string
	if len(aux.Payload) > 0 && aux.Payload[0] == '"' && json.Unmarshal(aux.Payload, &s) == nil {
		raw = s
	}

	*f = Restore(aux.Type, aux.ID, raw, aux.ReceivedAt)
	return nil
}
