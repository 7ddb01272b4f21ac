package domain

import "time"

// Response is an immutable message in a ticket's thread.
type Response struct {
	ID       string
	TicketID string
	AuthorID string
	// AuthorUsername and AuthorIsAdmin are read from the author's account
	// when the thread is loaded.
	AuthorUsername string
	AuthorIsAdmin  bool
	Message        string
	CreatedAt      time.Time
}

// EditPhase says whether a ticket's content may still change.
type EditPhase int

const (
	// PhaseEditable holds while the ticket has no responses.
	PhaseEditable EditPhase = iota
	// PhaseLocked holds from the first response on. There is no way back.
	PhaseLocked
)

func (p EditPhase) String() string {
	if p == PhaseLocked {
		return "locked"
	}
	return "editable"
}

// PhaseOf derives the edit phase from the current thread.
func PhaseOf(responses []Response) EditPhase {
	return PhaseForCount(len(responses))
}

// PhaseForCount derives the edit phase from a response count.
func PhaseForCount(n int) EditPhase {
	if n == 0 {
		return PhaseEditable
	}
	return PhaseLocked
}

// HasAdminResponse reports whether any response was written by an admin.
func HasAdminResponse(responses []Response) bool {
	for i := range responses {
		if responses[i].AuthorIsAdmin {
			return true
		}
	}
	return false
}
