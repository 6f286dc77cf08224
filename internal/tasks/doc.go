// Package tasks orchestrates a Spotify → YouTube playlist transfer with real-time progress reporting.
//
// # Pipeline
//
// [Pipeline.Run] drives one run through the stage machine:
//
//	Idle → TokenAcquired → TracksRead → VideosResolved → PlaylistCreated → ItemsInserted → Done
//
// Each stage makes these calls:
//
//  1. [Source.FetchToken] : client credentials token
//  2. [Source.ReadPlaylist] : playlist tracks as name + artists
//  3. [Destination.Search] : one search per track, first hit wins; misses keep their slot
//  4. [Destination.Authorize] : interactive consent for playlist writes
//  5. [Destination.CreatePlaylist] : exactly one playlist
//  6. [Destination.InsertItem] : one call per resolved video, in source order
//
// Stages run strictly in sequence and each consumes only the previous stage's output. The first error ends the
// run and is returned as a [StageError] wrapping the cause, so callers can still use errors.Is against the
// shared sentinels. An empty source playlist, or one where no track resolved, stops before anything is written.
// A dry run stops after resolution.
//
// Nothing is retried and a partially populated playlist is left in place.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking. The last update of a run is [Complete] or [Failed].
//
// # Run Recording
//
// The optional [RunRecorder] interface enables persistence of stage transitions and per-track resolutions
// (repositories.RunRepository).
//
// Recording errors are logged as warnings and never interrupt a transfer.
package tasks
