package download

// State is the lifecycle position of a single target.
type State int

const (
	// StatePending means no progress has been published for the target yet
	StatePending State = iota

	// StateTransferring means body bytes are being streamed to disk
	StateTransferring

	// StateCompleted means the file is fully on disk (downloaded or already present)
	StateCompleted

	// StateErrored means the transfer failed; partial bytes are left on disk
	StateErrored
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateTransferring:
		return "Transferring"
	case StateCompleted:
		return "Completed"
	case StateErrored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// IsTerminal returns true once no further transitions can happen
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateErrored
}
