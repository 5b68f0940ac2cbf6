package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message type constants. No component of this module sends or receives
// these messages; the package defines and validates them only.
const (
	TypeTagWrite                = "tag.write"
	TypePLCAudit                = "plc.audit"
	TypePLCAlarm                = "plc.alarm"
	TypeAttackerCampaignSummary = "attacker.campaign_summary"
)

// ValidMessageTypes lists all valid message types.
var ValidMessageTypes = []string{
	TypeTagWrite,
	TypePLCAudit,
	TypePLCAlarm,
	TypeAttackerCampaignSummary,
}

// SchemaVersion is the current protocol version.
const SchemaVersion = "v1.0.0"

// Message is the top-level protocol message containing an envelope and payload.
type Message struct {
	Envelope Envelope        `json:"envelope"`
	Payload  json.RawMessage `json:"payload"`
}

// Envelope contains message metadata and routing information.
type Envelope struct {
	ID            string `json:"id"`
	Timestamp     int64  `json:"timestamp"`
	Source        Source `json:"source"`
	SchemaVersion string `json:"schema_version"`
	Type          string `json:"type"`
	CorrelationID string `json:"correlation_id,omitempty"`
	ReplyTo       string `json:"reply_to,omitempty"`
}

// Source identifies who sent a message.
type Source struct {
	Service  string `json:"service"`
	Instance string `json:"instance"`
	Version  string `json:"version"`
}

// Error is a standard error object used in response payloads.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// TagWritePayload carries a single tag write.
type TagWritePayload struct {
	Tag   string  `json:"tag"`
	Value float64 `json:"value"`
}

// AuditPayload carries one PLC (or attacker) write audit record, published
// for the Historian and Ops API to consume asynchronously of the control
// scan that produced it.
type AuditPayload struct {
	Tag    string    `json:"tag"`
	Old    float64   `json:"old"`
	New    float64   `json:"new"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// AlarmPayload carries one alarm or relief edge transition for WebSocket
// broadcast. Kind is "alarm", "core_relief", or "sg_relief".
type AlarmPayload struct {
	Kind   string    `json:"kind"`
	Active bool      `json:"active"`
	At     time.Time `json:"at"`
}

// CampaignSummaryPayload carries an attacker's Campaign summary on attack
// end, mirroring attacker.Summary without importing that package (the
// protocol layer stays independent of any one component's internals).
type CampaignSummaryPayload struct {
	RunID           string    `json:"run_id"`
	AttackerKind    string    `json:"attacker_kind"`
	Targets         []string  `json:"targets"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	WritesAttempted int       `json:"writes_attempted"`
	WritesFailed    int       `json:"writes_failed"`
	WritesDropped   int       `json:"writes_dropped"`
	PendingAtEnd    int       `json:"pending_at_end"`
	State           string    `json:"state"`
}

// NewEnvelope creates a new envelope with a generated UUIDv4 and current UTC timestamp.
func NewEnvelope(source Source, msgType string) Envelope {
	return Envelope{
		ID:            uuid.New().String(),
		Timestamp:     time.Now().UTC().Unix(),
		Source:        source,
		SchemaVersion: SchemaVersion,
		Type:          msgType,
	}
}

// NewMessage builds a complete message with envelope and marshaled payload.
func NewMessage(source Source, msgType string, payload interface{}) (*Message, error) {
	env := NewEnvelope(source, msgType)

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return &Message{
		Envelope: env,
		Payload:  json.RawMessage(payloadBytes),
	}, nil
}

// Parse unmarshals JSON bytes into a Message.
func Parse(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	return &msg, nil
}

// ParseTagWrite extracts a TagWritePayload from a Message.
func ParseTagWrite(msg *Message) (*TagWritePayload, error) {
	var p TagWritePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return nil, fmt.Errorf("parse tag write payload: %w", err)
	}
	return &p, nil
}

// ParseAudit extracts an AuditPayload from a Message.
func ParseAudit(msg *Message) (*AuditPayload, error) {
	var p AuditPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return nil, fmt.Errorf("parse audit payload: %w", err)
	}
	return &p, nil
}

// ParseAlarm extracts an AlarmPayload from a Message.
func ParseAlarm(msg *Message) (*AlarmPayload, error) {
	var p AlarmPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return nil, fmt.Errorf("parse alarm payload: %w", err)
	}
	return &p, nil
}

// ParseCampaignSummary extracts a CampaignSummaryPayload from a Message.
func ParseCampaignSummary(msg *Message) (*CampaignSummaryPayload, error) {
	var p CampaignSummaryPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return nil, fmt.Errorf("parse campaign summary payload: %w", err)
	}
	return &p, nil
}
