package automation

import (
	"context"
	"fmt"
	"time"
)

// Condition reports whether a trigger should fire. It may block, for
// example while waiting for a fresh sensor sample.
type Condition func(ctx context.Context) (bool, error)

// Action is run when the condition holds. Actions normally enqueue one
// fire-and-forget command and return.
type Action func(ctx context.Context) error

// Trigger pairs a condition with the actions to run when it holds.
type Trigger struct {
	ID        string
	Condition Condition
	Actions   []Action
}

// Validate checks the trigger can be registered.
func (t Trigger) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidTrigger)
	}
	if t.Condition == nil {
		return fmt.Errorf("%w: %s has no condition", ErrInvalidTrigger, t.ID)
	}
	for i, a := range t.Actions {
		if a == nil {
			return fmt.Errorf("%w: %s action %d is nil", ErrInvalidTrigger, t.ID, i)
		}
	}
	return nil
}

// Source is the command source label for actions of this trigger.
func (t Trigger) Source() string {
	return "trigger:" + t.ID
}

// Status is the last known outcome of a trigger.
type Status struct {
	ID            string    `json:"id"`
	LastEvaluated time.Time `json:"last_evaluated,omitempty"`
	LastResult    string    `json:"last_result,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	FireCount     uint64    `json:"fire_count"`
	NextCheck     time.Time `json:"next_check,omitempty"`
}
