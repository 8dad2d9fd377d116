package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/wrapped/internal/models"
	"github.com/desertthunder/wrapped/internal/tasks"
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
	MsgStatsFetched
)

type statsResult struct {
	wrapped *models.Wrapped
	err     error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// statsFetchedMsg is the constructor for [MsgStatsFetched]
func statsFetchedMsg(w *models.Wrapped, err error) Msg {
	return Msg{kind: MsgStatsFetched, data: statsResult{wrapped: w, err: err}}
}
