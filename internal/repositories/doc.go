// Package repositories implements SQLite persistence for the transfer run ledger.
//
// Key Implementations:
//   - [RunRepository] : one row per pipeline run (stage, status, counts, timestamps) plus one row per
//     source track with the video it resolved to, or NULL for a miss
//
// The ledger records outcomes only; failed runs are never resumed from it.
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
