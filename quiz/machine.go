package quiz

import (
	"context"
	"errors"
	"log"

	"github.com/korjavin/examquizbot/models"
	"github.com/looplab/fsm"
)

const (
	stateIdle     = "idle"
	stateAwaiting = "awaiting_answer"

	eventSelect = "select"
	eventAnswer = "answer"
	eventLose   = "lose"
	eventStop   = "stop"
)

var sessionEvents = fsm.Events{
	{Name: eventSelect, Src: []string{stateIdle, stateAwaiting}, Dst: stateAwaiting},
	{Name: eventAnswer, Src: []string{stateAwaiting}, Dst: stateAwaiting},
	{Name: eventLose, Src: []string{stateAwaiting}, Dst: stateIdle},
	{Name: eventStop, Src: []string{stateAwaiting}, Dst: stateIdle},
}

func stateOf(rec *models.UserRecord) string {
	if rec.InQuiz() {
		return stateAwaiting
	}
	return stateIdle
}

// newMachine rebuilds the session state machine from the persisted record
func newMachine(rec *models.UserRecord) *fsm.FSM {
	userID := rec.UserID
	return fsm.NewFSM(stateOf(rec), sessionEvents, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			log.Printf("User %d: %s -> %s (%s)", userID, e.Src, e.Dst, e.Event)
		},
	})
}

// fire moves the machine along event; staying in the same state is not an error
func fire(ctx context.Context, m *fsm.FSM, event string) error {
	err := m.Event(ctx, event)
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	return err
}
