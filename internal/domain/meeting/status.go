package meeting

// nextStatus defines the single legal forward transition for each
// non-terminal status. Any non-terminal status may also move to FAILED.
var nextStatus = map[Status]Status{
	StatusUploaded:     StatusTranscribing,
	StatusTranscribing: StatusTranscribed,
	StatusTranscribed:  StatusSummarizing,
	StatusSummarizing:  StatusReady,
}

// ValidTransition reports whether moving from one status to another
// follows the legal pipeline path. Transitions never skip or reverse.
func ValidTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return nextStatus[from] == to
}
