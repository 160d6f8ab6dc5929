package loan

import (
	"fmt"
	"time"
)

type Trigger string

const (
	TriggerRequest  Trigger = "request"
	TriggerApprove  Trigger = "approve"
	TriggerReject   Trigger = "reject"
	TriggerDisburse Trigger = "disburse"
	TriggerRepay    Trigger = "repay"
	TriggerDefault  Trigger = "default"
)

type edge struct {
	from State
	to   State
}

// request has no source state; it only ever creates loans.
var edges = map[Trigger]edge{
	TriggerApprove:  {from: StateRequested, to: StateApproved},
	TriggerReject:   {from: StateRequested, to: StateRejected},
	TriggerDisburse: {from: StateApproved, to: StateDisbursed},
	TriggerRepay:    {from: StateDisbursed, to: StateRepaid},
	TriggerDefault:  {from: StateDisbursed, to: StateDefaulted},
}

// Source returns the state a loan must be in for t to fire.
func (t Trigger) Source() (State, bool) {
	e, ok := edges[t]
	return e.from, ok
}

// Next returns the target state of t applied to a loan in state cur.
func Next(t Trigger, cur State) (State, error) {
	e, ok := edges[t]
	if !ok {
		return "", fmt.Errorf("unknown trigger %q: %w", t, ErrInvalidStateTransition)
	}
	if cur != e.from {
		return "", fmt.Errorf("%s requires %s, loan is %s: %w", t, e.from, cur, ErrInvalidStateTransition)
	}
	return e.to, nil
}

// Apply moves l along t at the given instant. It stamps the lifecycle timestamp owned by the
// target state and records txHash when non-empty. l is left untouched on error.
func (l *Loan) Apply(t Trigger, at time.Time, txHash string) error {
	to, err := Next(t, l.Status)
	if err != nil {
		return err
	}
	at = at.UTC()
	switch to {
	case StateApproved:
		l.ApprovalTimestamp = &at
	case StateDisbursed:
		l.DisbursementTimestamp = &at
	case StateRepaid:
		l.RepaymentTimestamp = &at
	}
	if txHash != "" {
		h := txHash
		l.BlockchainTxHash = &h
	}
	l.Status = to
	l.StateUpdatedAt = at
	return nil
}
