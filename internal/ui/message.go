package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sp2yt/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgTransferComplete
	MsgPrompt
)

type transferOutcome struct {
	result *tasks.TransferResult
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// transferCompleteMsg is the constructor for [MsgTransferComplete]
func transferCompleteMsg(result *tasks.TransferResult, err error) Msg {
	return Msg{kind: MsgTransferComplete, data: transferOutcome{result, err}}
}

// promptMsg is the constructor for [MsgPrompt]
func promptMsg(text string) Msg {
	return Msg{kind: MsgPrompt, data: text}
}
