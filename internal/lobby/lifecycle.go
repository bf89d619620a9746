package lobby

import "github.com/looplab/fsm"

const (
	LifecycleActive    = "active"
	LifecycleCompleted = "completed"
	LifecycleCancelled = "cancelled"

	eventComplete = "complete"
	eventCancel   = "cancel"
)

// newLifecycle is terminal once it leaves active. Restarts stay in active
// and are tracked by the lobby epoch instead.
func newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		LifecycleActive,
		fsm.Events{
			{Name: eventComplete, Src: []string{LifecycleActive}, Dst: LifecycleCompleted},
			{Name: eventCancel, Src: []string{LifecycleActive}, Dst: LifecycleCancelled},
		},
		fsm.Callbacks{},
	)
}
