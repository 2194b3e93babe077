package chat

// Bubble Tea messages exchanged between commands and the root model.

// sendDoneMsg carries the result of an in-flight provider send.
type sendDoneMsg struct {
	conversation string // conversation identity the reply belongs to
	reply        string
	err          error
}

// clearedMsg reports the outcome of a clear-history request.
type clearedMsg struct {
	err error
}
