package folder

// State is the per-cycle position of a folder in the resolver state machine
type State string

const (
	StateIdle          State = "idle"
	StateChecking      State = "checking"
	StateSynced        State = "synced"
	StateOutOfSync     State = "out_of_sync"
	StateSearching     State = "searching"
	StateInTrash       State = "in_trash"
	StateManualPending State = "manual_pending"
)

// Terminal reports whether the state ends a check cycle
func (s State) Terminal() bool {
	switch s {
	case StateSynced, StateOutOfSync, StateInTrash, StateManualPending:
		return true
	}
	return false
}
