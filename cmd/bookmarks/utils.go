package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
)

var (
	red       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	yellow    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cyan      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	lightGray = lipgloss.NewStyle().Foreground(lipgloss.Color("248"))
	bold      = lipgloss.NewStyle().Bold(true)
)

func stateStyle(state folder.State) lipgloss.Style {
	switch state {
	case folder.StateSynced:
		return green
	case folder.StateInTrash, folder.StateManualPending:
		return red
	case folder.StateOutOfSync, folder.StateSearching:
		return yellow
	}
	return gray
}

// stateOf names what an evaluation means without running a check
func stateOf(status folder.SyncStatus, needsSearch bool) folder.State {
	switch {
	case status.IsInTrash:
		return folder.StateInTrash
	case needsSearch:
		return folder.StateManualPending
	case status.IsSynced:
		return folder.StateSynced
	}
	return folder.StateOutOfSync
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
