// Package historian persists run metadata, PLC/attacker audit records, HMI
// snapshots, and attacker campaign summaries to SQLite, following the same
// schema-migration-on-open and flat query-method style as the test store
// this module is modeled on, generalized from device test runs to the
// control-triad's own record types.
package historian

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cti-systems/reactorctl/internal/attacker"
	"github.com/cti-systems/reactorctl/internal/hmi"
	"github.com/cti-systems/reactorctl/internal/plc"
)

// Run is one row of the runs table: one component process lifetime.
type Run struct {
	ID        string
	StartedAt time.Time
	Component string
	Config    string // opaque JSON blob of the component's effective config
}

// AuditRow is one persisted audit record, correlated to the run that
// produced it.
type AuditRow struct {
	ID        int64
	RunID     string
	Tag       string
	Old       float64
	New       float64
	Reason    string
	At        time.Time
}

// SnapshotRow is one persisted HMI snapshot.
type SnapshotRow struct {
	ID     int64
	RunID  string
	At     time.Time
	Values map[string]*float64
	Modes  map[string]string
}

// CampaignRow is one persisted attacker campaign summary.
type CampaignRow struct {
	ID              int64
	RunID           string
	AttackerKind    string
	Targets         []string
	StartedAt       time.Time
	EndedAt         time.Time
	WritesAttempted int
	WritesFailed    int
	WritesDropped   int
	PendingAtEnd    int
	State           string
}

// Historian is the SQLite-backed sink every component forwards its records
// to. All writes are best-effort from the caller's point of view: Publish
// methods never block a control scan or HMI tick for long and log rather
// than propagate an error, matching the PLC/HMI AuditSink/Recorder
// contracts they satisfy.
type Historian struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at dbPath and
// applies the historian schema.
func Open(dbPath string) (*Historian, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	schema := `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    component TEXT NOT NULL,
    config TEXT DEFAULT ''
);

CREATE TABLE IF NOT EXISTS audit_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id),
    tag TEXT NOT NULL,
    old_value REAL NOT NULL,
    new_value REAL NOT NULL,
    reason TEXT DEFAULT '',
    at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS hmi_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id),
    at TEXT NOT NULL,
    values_json TEXT NOT NULL,
    modes_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS campaign_summaries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id),
    attacker_kind TEXT NOT NULL,
    targets_json TEXT NOT NULL,
    started_at TEXT NOT NULL,
    ended_at TEXT NOT NULL,
    writes_attempted INTEGER NOT NULL,
    writes_failed INTEGER NOT NULL,
    writes_dropped INTEGER NOT NULL,
    pending_at_end INTEGER NOT NULL,
    state TEXT NOT NULL
);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Historian{db: db}, nil
}

// Close closes the underlying database handle.
func (h *Historian) Close() error {
	return h.db.Close()
}

// CreateRun records the start of a component process lifetime.
func (h *Historian) CreateRun(id, component, config string) error {
	_, err := h.db.Exec(
		`INSERT INTO runs (id, started_at, component, config) VALUES (?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), component, config,
	)
	return err
}

// recordAudit persists a single audit record under runID and returns any
// write error; the sink returned by AuditSinkFor logs that error.
func (h *Historian) recordAudit(runID string, rec plc.AuditRecord) error {
	_, err := h.db.Exec(
		`INSERT INTO audit_records (run_id, tag, old_value, new_value, reason, at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, rec.Tag, rec.Old, rec.New, rec.Reason, rec.At.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// AuditSinkFor returns a plc.AuditSink that persists every record under
// runID, logging (not propagating) write failures per the AuditSink
// contract.
func (h *Historian) AuditSinkFor(runID string) plc.AuditSink {
	return &runAuditSink{h: h, runID: runID}
}

type runAuditSink struct {
	h     *Historian
	runID string
}

func (s *runAuditSink) Publish(rec plc.AuditRecord) {
	if err := s.h.recordAudit(s.runID, rec); err != nil {
		fmt.Printf("historian: audit write failed: %v\n", err)
	}
}

// RecorderFor returns an hmi.Recorder that persists every snapshot under
// runID.
func (h *Historian) RecorderFor(runID string) hmi.Recorder {
	return &runRecorder{h: h, runID: runID}
}

type runRecorder struct {
	h     *Historian
	runID string
}

func (r *runRecorder) Record(snap hmi.Snapshot) {
	valuesJSON, err := json.Marshal(snap.Values)
	if err != nil {
		fmt.Printf("historian: snapshot marshal failed: %v\n", err)
		return
	}
	modesJSON, err := json.Marshal(snap.Modes)
	if err != nil {
		fmt.Printf("historian: snapshot marshal failed: %v\n", err)
		return
	}
	_, err = r.h.db.Exec(
		`INSERT INTO hmi_snapshots (run_id, at, values_json, modes_json) VALUES (?, ?, ?, ?)`,
		r.runID, snap.At.UTC().Format(time.RFC3339Nano), string(valuesJSON), string(modesJSON),
	)
	if err != nil {
		fmt.Printf("historian: snapshot write failed: %v\n", err)
	}
}

// SummarySinkFor returns an attacker.SummarySink that persists every
// campaign summary under runID.
func (h *Historian) SummarySinkFor(runID string) attacker.SummarySink {
	return &runSummarySink{h: h, runID: runID}
}

type runSummarySink struct {
	h     *Historian
	runID string
}

func (s *runSummarySink) Publish(summary attacker.Summary) {
	targetsJSON, err := json.Marshal(summary.Targets)
	if err != nil {
		fmt.Printf("historian: campaign summary marshal failed: %v\n", err)
		return
	}
	_, err = s.h.db.Exec(
		`INSERT INTO campaign_summaries (run_id, attacker_kind, targets_json, started_at, ended_at, writes_attempted, writes_failed, writes_dropped, pending_at_end, state) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, summary.AttackerKind, string(targetsJSON),
		summary.StartedAt.UTC().Format(time.RFC3339Nano), summary.EndedAt.UTC().Format(time.RFC3339Nano),
		summary.WritesAttempted, summary.WritesFailed, summary.WritesDropped, summary.PendingAtEnd, string(summary.State),
	)
	if err != nil {
		fmt.Printf("historian: campaign summary write failed: %v\n", err)
	}
}

// QueryAudit returns every audit record for a run in chronological order.
func (h *Historian) QueryAudit(runID string) ([]AuditRow, error) {
	rows, err := h.db.Query(
		`SELECT id, run_id, tag, old_value, new_value, reason, at FROM audit_records WHERE run_id = ? ORDER BY at ASC, id ASC`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		var at string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Tag, &r.Old, &r.New, &r.Reason, &at); err != nil {
			return nil, err
		}
		r.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// QueryCampaigns returns every campaign summary for a run.
func (h *Historian) QueryCampaigns(runID string) ([]CampaignRow, error) {
	rows, err := h.db.Query(
		`SELECT id, run_id, attacker_kind, targets_json, started_at, ended_at, writes_attempted, writes_failed, writes_dropped, pending_at_end, state FROM campaign_summaries WHERE run_id = ? ORDER BY started_at ASC`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CampaignRow
	for rows.Next() {
		var r CampaignRow
		var targetsJSON, startedAt, endedAt string
		if err := rows.Scan(&r.ID, &r.RunID, &r.AttackerKind, &targetsJSON, &startedAt, &endedAt,
			&r.WritesAttempted, &r.WritesFailed, &r.WritesDropped, &r.PendingAtEnd, &r.State); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(targetsJSON), &r.Targets); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if r.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
