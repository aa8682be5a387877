package journal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/keywords/internal/engine"
	"github.com/roach88/keywords/internal/value"
)

// DomainSnapshot prefixes snapshot digests. The version suffix allows the
// digest input to change without colliding with old journals.
const DomainSnapshot = "keywords/snapshot/v1"

// KindDispatch marks entries written by RecordDispatch.
const KindDispatch = "dispatch"

// Recorder writes the entries of one run. It implements engine.Journal.
type Recorder struct {
	ctx   context.Context
	store *Store
	clock Clock
	ids   RunIDGenerator
	runID string
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock sets the seq source. Defaults to a fresh SeqClock.
func WithClock(c Clock) RecorderOption {
	return func(r *Recorder) {
		r.clock = c
	}
}

// WithRunIDs sets the run id source. Defaults to UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) RecorderOption {
	return func(r *Recorder) {
		r.ids = g
	}
}

// NewRecorder starts a run labelled label for the app mounted at root.
// ctx bounds every write made through the recorder.
func NewRecorder(ctx context.Context, store *Store, label, root string, opts ...RecorderOption) (*Recorder, error) {
	r := &Recorder{
		ctx:   ctx,
		store: store,
		clock: NewClock(),
		ids:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}

	r.runID = r.ids.Generate()
	if err := store.WriteRun(ctx, Run{ID: r.runID, Label: label, Root: root}); err != nil {
		return nil, err
	}
	return r, nil
}

// RunID returns the id of the run being recorded.
func (r *Recorder) RunID() string {
	return r.runID
}

// Record implements engine.Journal.
func (r *Recorder) Record(ev engine.Event) error {
	return r.store.WriteEntry(r.ctx, Entry{
		RunID:      r.runID,
		Seq:        r.clock.Next(),
		Kind:       string(ev.Kind),
		Component:  ev.Component,
		TemplateID: ev.TemplateID,
		Ref:        ev.Ref,
		Window:     ev.Window,
		Tasks:      ev.Tasks,
		Failed:     ev.Failed,
	})
}

// RecordDispatch records an event dispatched at target.
func (r *Recorder) RecordDispatch(target, event string) error {
	return r.store.WriteEntry(r.ctx, Entry{
		RunID:  r.runID,
		Seq:    r.clock.Next(),
		Kind:   KindDispatch,
		Target: target,
		Event:  event,
	})
}

// Snapshot stores html under name. The digest covers the name, the html
// and the instance data so a snapshot changes when either output or state
// changes.
func (r *Recorder) Snapshot(name, html string, data map[string]any) (Snapshot, error) {
	digest, err := SnapshotDigest(name, html, data)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		RunID:  r.runID,
		Seq:    r.clock.Next(),
		Name:   name,
		HTML:   html,
		Digest: digest,
	}
	if err := r.store.WriteSnapshot(r.ctx, snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// SnapshotDigest computes the content digest of a snapshot.
// Format: SHA256(DomainSnapshot + 0x00 + canonical JSON)
func SnapshotDigest(name, html string, data map[string]any) (string, error) {
	obj := map[string]any{
		"name": name,
		"html": html,
		"data": data,
	}
	if data == nil {
		obj["data"] = map[string]any{}
	}
	canonical, err := value.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("snapshot digest: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainSnapshot))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

var _ engine.Journal = (*Recorder)(nil)
