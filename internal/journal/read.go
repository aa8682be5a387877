package journal

import (
	"context"
	"fmt"
)

// Runs returns all runs in insertion order.
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, root FROM runs ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Label, &r.Root); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Entries returns the entries of a run ordered by seq. When kind is not
// empty only entries of that kind are returned.
func (s *Store) Entries(ctx context.Context, runID, kind string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, component, template_id, ref, target, event, window_no, tasks, failed
		FROM entries
		WHERE run_id = ? AND (? = '' OR kind = ?)
		ORDER BY seq ASC
	`, runID, kind, kind)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Kind, &e.Component, &e.TemplateID,
			&e.Ref, &e.Target, &e.Event, &e.Window, &e.Tasks, &e.Failed); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Snapshots returns the snapshots of a run ordered by seq.
func (s *Store) Snapshots(ctx context.Context, runID string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, name, html, digest
		FROM snapshots
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []Snapshot{}
	for rows.Next() {
		var sn Snapshot
		if err := rows.Scan(&sn.RunID, &sn.Seq, &sn.Name, &sn.HTML, &sn.Digest); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}
