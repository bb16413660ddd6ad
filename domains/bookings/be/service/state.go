package service

// transitions is the closed transition table. A booking starts in hold; there
// is no edge into hold and no edge out of a terminal state.
var transitions = map[Status]map[Status]bool{
	StatusHold: {
		StatusPencil:    true,
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusPencil: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusCancelled: true,
		StatusCompleted: true,
	},
	StatusCancelled: {},
	StatusCompleted: {},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// ValidateTransition returns ErrIllegalTransition (wrapped with the edge) for
// any pair outside the table.
func ValidateTransition(from, to Status) error {
	if !from.Valid() || !to.Valid() {
		return illegalTransition(from, to)
	}
	if !CanTransition(from, to) {
		return illegalTransition(from, to)
	}
	return nil
}
