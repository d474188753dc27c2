// Package frame decodes SSE events from the brain service into typed frames.
//
// Every event type the dashboard understands maps to a Kind through a table
// built at package init. Event types outside that table decode to KindUnknown
// so callers always fall through to a default case instead of a missing key.
package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/brainstream/pkg/sse"
)

// ErrNotJSON is returned by Payload.Decode when the payload is opaque text.
var ErrNotJSON = errors.New("payload is not JSON")

// Kind is the typed event type of a frame.
type Kind int

const (
	KindUnknown Kind = iota
	KindMessage
	KindThought
	KindTrinityScore
	KindActiveAgent
	KindBrainState
	KindConnected
	KindKeepAlive
)

// Wire event type names.
const (
	TypeMessage      = sse.DefaultEventType
	TypeThought      = "thought"
	TypeTrinityScore = "trinity_score"
	TypeActiveAgent  = "active_agent"
	TypeBrainState   = "brain_state"
	TypeConnected    = "connected"
	TypeKeepAlive    = "keepalive"
)

var kindsByType = map[string]Kind{
	TypeMessage:      KindMessage,
	TypeThought:      KindThought,
	TypeTrinityScore: KindTrinityScore,
	TypeActiveAgent:  KindActiveAgent,
	TypeBrainState:   KindBrainState,
	TypeConnected:    KindConnected,
	TypeKeepAlive:    KindKeepAlive,
}

var typesByKind = func() map[Kind]string {
	m := make(map[Kind]string, len(kindsByType))
	for t, k := range kindsByType {
		m[k] = t
	}
	return m
}()

// ParseKind maps a wire event type to its Kind. An empty type is the default
// message type; anything unrecognized is KindUnknown.
func ParseKind(eventType string) Kind {
	if eventType == "" {
		return KindMessage
	}
	if k, ok := kindsByType[eventType]; ok {
		return k
	}
	return KindUnknown
}

func (k Kind) String() string {
	if t, ok := typesByKind[k]; ok {
		return t
	}
	return "unknown"
}

// Payload is the data of a frame. Raw always holds the original text; JSON is
// set only when Raw is valid JSON.
type Payload struct {
	Raw  string
	JSON json.RawMessage
}

// NewPayload wraps raw text, recognizing JSON when it parses.
func NewPayload(raw string) Payload {
	p := Payload{Raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		p.JSON = json.RawMessage(trimmed)
	}
	return p
}

// IsJSON reports whether the payload parsed as JSON.
func (p Payload) IsJSON() bool {
	return p.JSON != nil
}

// Decode unmarshals a JSON payload into v.
func (p Payload) Decode(v any) error {
	if !p.IsJSON() {
		return ErrNotJSON
	}
	return json.Unmarshal(p.JSON, v)
}

// Text returns the payload as display text: the unquoted value of a JSON
// string, or the raw text for everything else.
func (p Payload) Text() string {
	if p.IsJSON() && bytes.HasPrefix(p.JSON, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(p.JSON, &s); err == nil {
			return s
		}
	}
	return p.Raw
}

// Number extracts a finite number from the payload. Accepted shapes are a bare
// number, a string holding a number (quoted or not), or an object carrying one
// of the given keys with either of those values.
func (p Payload) Number(keys ...string) (float64, bool) {
	if !p.IsJSON() {
		return parseNumber(p.Raw)
	}

	var v any
	if err := json.Unmarshal(p.JSON, &v); err != nil {
		return 0, false
	}
	if obj, ok := v.(map[string]any); ok {
		for _, key := range keys {
			if n, ok := numberValue(obj[key]); ok {
				return n, true
			}
		}
		return 0, false
	}
	return numberValue(v)
}

// String extracts a non-empty string from the payload. Accepted shapes are a
// JSON string, non-JSON text, or an object carrying one of the given keys with
// a string value.
func (p Payload) String(keys ...string) (string, bool) {
	if !p.IsJSON() {
		s := strings.TrimSpace(p.Raw)
		return s, s != ""
	}

	var v any
	if err := json.Unmarshal(p.JSON, &v); err != nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, val != ""
	case map[string]any:
		for _, key := range keys {
			if s, ok := val[key].(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case string:
		return parseNumber(n)
	}
	return 0, false
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Frame is one decoded event from the stream.
type Frame struct {
	Kind       Kind
	Type       string
	ID         string
	Payload    Payload
	ReceivedAt time.Time
}

// Decode converts a parsed SSE event into a Frame. It never fails: payloads
// that are not JSON are carried as opaque text. The keep-alive literal is
// recognized before any JSON parsing.
func Decode(ev *sse.Event, receivedAt time.Time) Frame {
	f := Frame{
		Type:       ev.EventType(),
		ID:         ev.ID,
		ReceivedAt: receivedAt,
	}

	if ev.IsKeepAlive() {
		f.Kind = KindKeepAlive
		f.Payload = Payload{Raw: ev.Data}
		return f
	}

	f.Kind = ParseKind(ev.Type)
	f.Payload = NewPayload(ev.Data)
	return f
}

// New builds a frame of the given type from a value. Strings are carried as
// raw text; everything else is marshaled to JSON.
func New(eventType string, v any, at time.Time) (Frame, error) {
	var raw string
	switch val := v.(type) {
	case string:
		raw = val
	case []byte:
		raw = string(val)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Frame{}, err
		}
		raw = string(b)
	}

	return Decode(&sse.Event{Type: eventType, Data: raw}, at), nil
}

// Restore rebuilds a frame from stored parts: its type name, id, raw payload
// text and receive time.
func Restore(eventType, id, raw string, receivedAt time.Time) Frame {
	if eventType == TypeMessage {
		eventType = ""
	}
	return Decode(&sse.Event{Type: eventType, ID: id, Data: raw}, receivedAt)
}

// IsKeepAlive reports whether the frame is a keep-alive marker.
func (f Frame) IsKeepAlive() bool {
	return f.Kind == KindKeepAlive
}

// Event converts the frame back into an SSE event for the wire.
func (f Frame) Event() sse.Event {
	return sse.Event{
		Type: f.Type,
		ID:   f.ID,
		Data: f.Payload.Raw,
	}
}
