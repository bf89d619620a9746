package engine

import "slices"

// NewState seats the initiator first, then every distinct invited ID in
// order. Re-listing the initiator does not add them twice.
func NewState(initiatorID string, invitedIDs []string) State {
	s := State{Participants: []Participant{{ID: initiatorID, State: StateInactive}}}
	for _, id := range invitedIDs {
		if id == "" || s.Has(id) {
			continue
		}
		s.Participants = append(s.Participants, Participant{ID: id, State: StateInactive})
	}
	return s
}

func (s State) Clone() State {
	return State{Participants: slices.Clone(s.Participants)}
}

func (s State) Len() int { return len(s.Participants) }

func (s State) Has(id string) bool { return s.index(id) >= 0 }

func (s State) Get(id string) (ParticipantState, bool) {
	idx := s.index(id)
	if idx < 0 {
		return "", false
	}
	return s.Participants[idx].State, true
}

// IDs returns participant IDs in display order.
func (s State) IDs() []string {
	ids := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		ids = append(ids, p.ID)
	}
	return ids
}

// AllReady is false for an empty table.
func (s State) AllReady() bool {
	if len(s.Participants) == 0 {
		return false
	}
	for _, p := range s.Participants {
		if p.State != StateReady {
			return false
		}
	}
	return true
}

// Pending returns the participants that still need to ready up.
func (s State) Pending() []string {
	var ids []string
	for _, p := range s.Participants {
		if p.State == StateInactive || p.State == StatePreparing {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (s State) index(id string) int {
	return slices.IndexFunc(s.Participants, func(p Participant) bool { return p.ID == id })
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
