// Package ui renders a running transfer in the terminal using bubbletea's Elm architecture.
//
// The pipeline runs in its own goroutine and reports through its progress channel. The [Model]
// turns each update into a Msg and redraws:
//  1. a stage checklist with a spinner on the active stage
//  2. the latest progress lines and any authorization prompts
//  3. once finished, a summary and a filterable list of every track and the video it resolved to
//
// Quitting while the transfer runs cancels its context and waits for the pipeline to stop.
// Key bindings and contextual help come from charmbracelet/bubbles/key and bubbles/help.
package ui
