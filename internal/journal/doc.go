// Package journal persists what a render run did to SQLite.
//
// A run is one mounted app (a CLI render, or one harness scenario). Each
// run gets entries for mounts, refreshes, drained refresh windows and
// dispatched events, plus named HTML snapshots with content digests. All
// rows carry a logical seq from a Clock so two runs of the same input
// produce identical journals apart from the run id.
//
// The Store applies WAL mode and a single connection, matching how the
// engine writes from one goroutine.
package journal
