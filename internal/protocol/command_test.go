package protocol

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBuildTagWrite(t *testing.T) {
	src := testSource()
	msg, err := BuildTagWrite(src, "core_control_rod_pos_value", 0.42)
	if err != nil {
		t.Fatalf("BuildTagWrite() error: %v", err)
	}

	if msg.Envelope.Type != TypeTagWrite {
		t.Errorf("Type = %q, want %q", msg.Envelope.Type, TypeTagWrite)
	}
	if !uuidV4Pattern.MatchString(msg.Envelope.ID) {
		t.Errorf("ID is not valid UUIDv4: %q", msg.Envelope.ID)
	}

	var p TagWritePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Tag != "core_control_rod_pos_value" || p.Value != 0.42 {
		t.Errorf("got %+v", p)
	}
}

func TestBuildTagWriteValidates(t *testing.T) {
	msg, err := BuildTagWrite(testSource(), "core_temp_out_value", 270.0)
	if err != nil {
		t.Fatalf("BuildTagWrite() error: %v", err)
	}
	if err := Validate(msg); err != nil {
		t.Errorf("Validate() error on BuildTagWrite message: %v", err)
	}
}

func TestBuildAudit(t *testing.T) {
	at := time.Now().UTC().Truncate(time.Second)
	msg, err := BuildAudit(testSource(), "core_control_rod_pos_value", 50, 52, "reactivity control", at)
	if err != nil {
		t.Fatalf("BuildAudit() error: %v", err)
	}
	if msg.Envelope.Type != TypePLCAudit {
		t.Errorf("Type = %q, want %q", msg.Envelope.Type, TypePLCAudit)
	}

	var p AuditPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Old != 50 || p.New != 52 || p.Reason != "reactivity control" {
		t.Errorf("got %+v", p)
	}
}

func TestBuildAlarm(t *testing.T) {
	at := time.Now().UTC().Truncate(time.Second)
	msg, err := BuildAlarm(testSource(), "core_relief", true, at)
	if err != nil {
		t.Fatalf("BuildAlarm() error: %v", err)
	}
	if msg.Envelope.Type != TypePLCAlarm {
		t.Errorf("Type = %q, want %q", msg.Envelope.Type, TypePLCAlarm)
	}

	var p AlarmPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Kind != "core_relief" || !p.Active {
		t.Errorf("got %+v", p)
	}
}

func TestBuildCampaignSummary(t *testing.T) {
	summary := CampaignSummaryPayload{
		RunID: "run-3", AttackerKind: "latency_proxy", Targets: []string{"sg_feedwater_flow_value"},
		WritesAttempted: 40, WritesDropped: 5, PendingAtEnd: 2, State: "terminated",
	}
	msg, err := BuildCampaignSummary(testSource(), summary)
	if err != nil {
		t.Fatalf("BuildCampaignSummary() error: %v", err)
	}
	if msg.Envelope.Type != TypeAttackerCampaignSummary {
		t.Errorf("Type = %q, want %q", msg.Envelope.Type, TypeAttackerCampaignSummary)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("json.Marshal() error: %v", err)
	}
	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	p, err := ParseCampaignSummary(parsed)
	if err != nil {
		t.Fatalf("ParseCampaignSummary() error: %v", err)
	}
	if p.RunID != "run-3" || p.WritesDropped != 5 || p.PendingAtEnd != 2 {
		t.Errorf("round-trip got %+v", p)
	}
}
