package engine

import (
	"errors"
)

var ErrNotParticipant = errors.New("actor is not a participant")
var ErrAlreadyParticipant = errors.New("actor is already a participant")
var ErrNotReady = errors.New("actor is not ready")
var ErrUnsupportedCommand = errors.New("unsupported command")

type ParticipantState string

const (
	StateInactive  ParticipantState = "inactive"
	StatePreparing ParticipantState = "preparing"
	StateReady     ParticipantState = "ready"
)

type Participant struct {
	ID    string
	State ParticipantState
}

// State is the participant table of one lobby. Slice order is the
// display and announcement order.
type State struct {
	Participants []Participant
}

type CommandType string

const (
	CmdReady     CommandType = "Ready"
	CmdPreparing CommandType = "Preparing"
	CmdWithdraw  CommandType = "Withdraw"
	CmdLeave     CommandType = "Leave"
	CmdRestart   CommandType = "Restart"
	CmdOverride  CommandType = "Override"
	CmdCancel    CommandType = "Cancel"
	CmdAlert     CommandType = "Alert"
	CmdAdmit     CommandType = "Admit"
)

/*
	CmdReady     -> EvtStateChanged -> EvtAllReady (when everyone is ready)
	CmdPreparing -> EvtStateChanged
	CmdWithdraw  -> EvtStateChanged, only if the actor still holds the withdrawn marker
	CmdLeave     -> EvtParticipantLeft -> EvtLobbyEmptied | EvtAllReady
	CmdRestart   -> EvtLobbyReset
	CmdOverride  -> EvtOverrideTriggered (actor must be ready)
	CmdCancel    -> EvtLobbyCancelled
	CmdAlert     -> EvtAlertRequested with the not-ready participants as targets
	CmdAdmit     -> EvtParticipantAdmitted
*/

type Command struct {
	Type    CommandType
	ActorID string
	// Marker is the state being withdrawn for CmdWithdraw.
	Marker ParticipantState
}

type EventType string

const (
	EvtStateChanged        EventType = "StateChanged"
	EvtParticipantLeft     EventType = "ParticipantLeft"
	EvtParticipantAdmitted EventType = "ParticipantAdmitted"
	EvtAllReady            EventType = "AllReady"
	EvtLobbyEmptied        EventType = "LobbyEmptied"
	EvtLobbyReset          EventType = "LobbyReset"
	EvtOverrideTriggered   EventType = "OverrideTriggered"
	EvtLobbyCancelled      EventType = "LobbyCancelled"
	EvtAlertRequested      EventType = "AlertRequested"
)

type Event struct {
	Type    EventType
	ActorID string
	From    ParticipantState
	To      ParticipantState
	Targets []string
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	if cmd.Type == CmdAdmit {
		if s.Has(cmd.ActorID) {
			return nil, s, ErrAlreadyParticipant
		}
		newState := s.Clone()
		newState.Participants = append(newState.Participants, Participant{ID: cmd.ActorID, State: StateInactive})
		return []Event{{Type: EvtParticipantAdmitted, ActorID: cmd.ActorID, To: StateInactive}}, newState, nil
	}

	current, ok := s.Get(cmd.ActorID)
	if !ok {
		return nil, s, ErrNotParticipant
	}

	switch cmd.Type {
	case CmdReady:
		newState := s.with(cmd.ActorID, StateReady)
		events := []Event{{Type: EvtStateChanged, ActorID: cmd.ActorID, From: current, To: StateReady}}
		if newState.AllReady() {
			events = append(events, Event{Type: EvtAllReady})
		}
		return events, newState, nil

	case CmdPreparing:
		newState := s.with(cmd.ActorID, StatePreparing)
		return []Event{{Type: EvtStateChanged, ActorID: cmd.ActorID, From: current, To: StatePreparing}}, newState, nil

	case CmdWithdraw:
		// The opposing marker being retracted by us arrives here too; only
		// a participant still holding the marker reverts.
		if current != cmd.Marker || current == StateInactive {
			return nil, s, nil
		}
		newState := s.with(cmd.ActorID, StateInactive)
		return []Event{{Type: EvtStateChanged, ActorID: cmd.ActorID, From: current, To: StateInactive}}, newState, nil

	case CmdLeave:
		newState := s.without(cmd.ActorID)
		events := []Event{{Type: EvtParticipantLeft, ActorID: cmd.ActorID, From: current}}
		if newState.Len() == 0 {
			events = append(events, Event{Type: EvtLobbyEmptied})
		} else if newState.AllReady() {
			events = append(events, Event{Type: EvtAllReady})
		}
		return events, newState, nil

	case CmdRestart:
		newState := s.Clone()
		for i := range newState.Participants {
			newState.Participants[i].State = StateInactive
		}
		return []Event{{Type: EvtLobbyReset, ActorID: cmd.ActorID}}, newState, nil

	case CmdOverride:
		if current != StateReady {
			return nil, s, ErrNotReady
		}
		return []Event{{Type: EvtOverrideTriggered, ActorID: cmd.ActorID}}, s, nil

	case CmdCancel:
		return []Event{{Type: EvtLobbyCancelled, ActorID: cmd.ActorID}}, s, nil

	case CmdAlert:
		return []Event{{Type: EvtAlertRequested, ActorID: cmd.ActorID, Targets: s.Pending()}}, s, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func (s State) with(id string, state ParticipantState) State {
	newState := s.Clone()
	newState.Participants[newState.index(id)].State = state
	return newState
}

func (s State) without(id string) State {
	idx := s.index(id)
	newState := State{Participants: make([]Participant, 0, len(s.Participants)-1)}
	newState.Participants = append(newState.Participants, s.Participants[:idx]...)
	newState.Participants = append(newState.Participants, s.Participants[idx+1:]...)
	return newState
}
