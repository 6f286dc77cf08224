// Package models defines the artifacts passed between pipeline stages and the persisted run ledger entity.
//
// Pipeline artifacts are plain values, created by one stage and consumed by the next:
//   - [TrackDescriptor] : a source track (name + ordered artists) and its display string
//   - [Resolution] : a track paired with the video it resolved to, or a miss
//   - [PlaylistDetails] / [PlaylistResult] : the destination playlist request and outcome
//
// [Stage] enumerates the per-run state machine
//
//	Idle → TokenAcquired → TracksRead → VideosResolved → PlaylistCreated → ItemsInserted → Done
//
// and [Run] is the persisted record of one pass through it. Run implements [Model] so it can be stored by a [Repository].
package models
