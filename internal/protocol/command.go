package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// BuildTagWrite creates a tag.write message carrying one tag value.
func BuildTagWrite(source Source, tag string, value float64) (*Message, error) {
	env := NewEnvelope(source, TypeTagWrite)

	payload := TagWritePayload{Tag: tag, Value: value}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tag write payload: %w", err)
	}

	return &Message{Envelope: env, Payload: json.RawMessage(payloadBytes)}, nil
}

// BuildAudit creates a plc.audit message carrying one write's before/after
// record, for the Historian and Ops API to consume asynchronously.
func BuildAudit(source Source, tag string, old, new float64, reason string, at time.Time) (*Message, error) {
	env := NewEnvelope(source, TypePLCAudit)

	payload := AuditPayload{Tag: tag, Old: old, New: new, Reason: reason, At: at}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}

	return &Message{Envelope: env, Payload: json.RawMessage(payloadBytes)}, nil
}

// BuildAlarm creates a plc.alarm message for an alarm or relief edge
// transition, ready for WebSocket broadcast.
func BuildAlarm(source Source, kind string, active bool, at time.Time) (*Message, error) {
	env := NewEnvelope(source, TypePLCAlarm)

	payload := AlarmPayload{Kind: kind, Active: active, At: at}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal alarm payload: %w", err)
	}

	return &Message{Envelope: env, Payload: json.RawMessage(payloadBytes)}, nil
}

// BuildCampaignSummary creates an attacker.campaign_summary message from an
// attacker's completed Campaign summary fields.
func BuildCampaignSummary(source Source, summary CampaignSummaryPayload) (*Message, error) {
	env := NewEnvelope(source, TypeAttackerCampaignSummary)

	payloadBytes, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal campaign summary payload: %w", err)
	}

	return &Message{Envelope: env, Payload: json.RawMessage(payloadBytes)}, nil
}
