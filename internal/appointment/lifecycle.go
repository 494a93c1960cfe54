package appointment

var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether an appointment in from may move to to.
// Completed and cancelled are terminal.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanReschedule reports whether the appointment may still be moved in time.
func CanReschedule(s AppointmentStatus) bool {
	return s == StatusPending || s == StatusConfirmed
}
