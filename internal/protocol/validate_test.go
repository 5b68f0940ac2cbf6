package protocol

import (
	"encoding/json"
	"testing"
)

func validTagWriteMessage() *Message {
	payload := TagWritePayload{Tag: "core_control_rod_pos_value", Value: 0.5}
	payloadBytes, _ := json.Marshal(payload)
	return &Message{
		Envelope: Envelope{
			ID:            "550e8400-e29b-41d4-a716-446655440000",
			Timestamp:     1771329600,
			Source:        Source{Service: "plc", Instance: "plc-01", Version: "1.0.0"},
			SchemaVersion: "v1.0.0",
			Type:          TypeTagWrite,
		},
		Payload: json.RawMessage(payloadBytes),
	}
}

func TestValidateAcceptsTagWrite(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
	}{
		{"tag_write", validTagWriteMessage()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.msg); err != nil {
				t.Errorf("Validate() error: %v", err)
			}
		})
	}
}

func TestValidateInvalidMessages(t *testing.T) {
	tests := []struct {
		name   string
		modify func(msg *Message)
	}{
		{
			name: "empty_id",
			modify: func(msg *Message) {
				msg.Envelope.ID = ""
			},
		},
		{
			name: "invalid_id_format",
			modify: func(msg *Message) {
				msg.Envelope.ID = "not-a-uuid"
			},
		},
		{
			name: "uuid_v1_rejected",
			modify: func(msg *Message) {
				// UUIDv1 has version nibble '1' instead of '4'
				msg.Envelope.ID = "550e8400-e29b-11d4-a716-446655440000"
			},
		},
		{
			name: "negative_timestamp",
			modify: func(msg *Message) {
				msg.Envelope.Timestamp = -1
			},
		},
		{
			name: "wrong_schema_version",
			modify: func(msg *Message) {
				msg.Envelope.SchemaVersion = "v2.0.0"
			},
		},
		{
			name: "unknown_type",
			modify: func(msg *Message) {
				msg.Envelope.Type = "unknown.type"
			},
		},
		{
			name: "invalid_source_service_uppercase",
			modify: func(msg *Message) {
				msg.Envelope.Source.Service = "PLC"
			},
		},
		{
			name: "invalid_source_service_starts_with_number",
			modify: func(msg *Message) {
				msg.Envelope.Source.Service = "1plc"
			},
		},
		{
			name: "empty_source_service",
			modify: func(msg *Message) {
				msg.Envelope.Source.Service = ""
			},
		},
		{
			name: "invalid_source_instance",
			modify: func(msg *Message) {
				msg.Envelope.Source.Instance = "STATION 01"
			},
		},
		{
			name: "invalid_source_version",
			modify: func(msg *Message) {
				msg.Envelope.Source.Version = "v1.0"
			},
		},
		{
			name: "invalid_correlation_id_format",
			modify: func(msg *Message) {
				msg.Envelope.CorrelationID = "not-a-valid-uuid"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validTagWriteMessage()
			tt.modify(msg)
			if err := Validate(msg); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

func TestValidateReplyToFormat(t *testing.T) {
	msg := validTagWriteMessage()
	msg.Envelope.ReplyTo = "Not A Valid Topic"
	if err := Validate(msg); err == nil {
		t.Error("Validate() expected error for malformed reply_to")
	}
}

func TestValidateMinimalMessage(t *testing.T) {
	msg := validTagWriteMessage()
	// tag.write carries no correlation_id or reply_to
	msg.Envelope.CorrelationID = ""
	msg.Envelope.ReplyTo = ""
	if err := Validate(msg); err != nil {
		t.Errorf("Validate() error on minimal tag.write: %v", err)
	}
}
