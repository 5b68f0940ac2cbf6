// Package hmi implements the Human-Machine Interface: a pure reader that
// samples the Tag Store on a fixed cadence and appends a structured
// snapshot record, following the same sample-and-record loop shape as the
// temperature monitor this module is modeled on, generalized from two
// fixed commands to the full snapshot tag list and widened from SQLite-only
// recording to an injectable Recorder.
package hmi

import (
	"context"
	"log"
	"time"

	"github.com/cti-systems/reactorctl/internal/tags"
	"github.com/cti-systems/reactorctl/internal/tagstore"
)

// Snapshot is one HMI read: every catalog tag's value (nil on read failure,
// the NULL substitution the HMI renders distinctly), plus the decoded mode
// of every mode tag for display.
type Snapshot struct {
	At     time.Time
	Values map[string]*float64
	Modes  map[string]string
}

// Recorder receives every HMI snapshot. Record returns nothing, so a
// Recorder logs its own write failures; the HMI never blocks or retries on
// one.
type Recorder interface {
	Record(Snapshot)
}

// discardRecorder is the default Recorder when none is wired in.
type discardRecorder struct{}

func (discardRecorder) Record(Snapshot) {}

// modeTags lists every tag whose value is a mode encoding, decoded for
// display per the base contract (1=Off, 2=On, 3=Auto).
var modeTags = []string{
	tags.CoreControlRodMode,
	tags.CoreRCPMode,
	tags.CoreCoolantValveMode,
	tags.PrimaryLoopValveMode,
	tags.CorePressurizerHeaterMode,
	tags.CorePressurizerSprayMode,
	tags.CorePressurizerValveMode,
	tags.SGFeedwaterValveMode,
}

// HMI is a read-only renderer/recorder. It never calls Store.Set.
type HMI struct {
	recorder Recorder
}

// New constructs an HMI with the default no-op Recorder.
func New() *HMI {
	return &HMI{recorder: discardRecorder{}}
}

// WithRecorder attaches a Recorder every snapshot is forwarded to.
func (h *HMI) WithRecorder(r Recorder) *HMI {
	h.recorder = r
	return h
}

// Tick reads every declared tag once and records the snapshot. dtMs is
// accepted for symmetry with the other components' Tick signature; the HMI
// has no rate-dependent logic of its own.
func (h *HMI) Tick(_ context.Context, store tagstore.Store, _ float64) {
	snap := Snapshot{
		At:     time.Now(),
		Values: make(map[string]*float64, len(tags.Catalog)),
		Modes:  make(map[string]string, len(modeTags)),
	}

	for _, d := range tags.Catalog {
		res := store.Get(d.Name)
		v, err := res.Unwrap()
		if err != nil {
			snap.Values[d.Name] = nil
			log.Printf("hmi: read failed for %s: %v (rendering NULL)", d.Name, err)
			continue
		}
		val := v
		snap.Values[d.Name] = &val
	}

	for _, name := range modeTags {
		if v := snap.Values[name]; v != nil {
			snap.Modes[name] = tags.Mode(*v).String()
		} else {
			snap.Modes[name] = "NULL"
		}
	}

	h.recorder.Record(snap)
}
