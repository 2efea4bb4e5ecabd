package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeKind names the record family a Change or sync applies to.
type ChangeKind string

const (
	ChangeKindBalance     ChangeKind = "balance"
	ChangeKindTransaction ChangeKind = "transactions"
	ChangeKindOwnership   ChangeKind = "ownership"
)

type ChangeOp string

const (
	ChangeOpUpsert ChangeOp = "upsert"
	ChangeOpAppend ChangeOp = "append"
	ChangeOpAdd    ChangeOp = "add"
	ChangeOpRemove ChangeOp = "remove"
)

// Change is a local mutation to mirror into the remote store. Exactly one
// payload is set, matching Kind.
type Change struct {
	Kind        ChangeKind
	Op          ChangeOp
	Balance     *Balance
	Transaction *Transaction
	Ownership   *Ownership
	NFTID       string // for ChangeOpRemove
}

// SyncAction is what the sweeper did for one record kind.
type SyncAction string

const (
	SyncActionPushed  SyncAction = "pushed"
	SyncActionSkipped SyncAction = "skipped"
	SyncActionFailed  SyncAction = "failed"
)

type SyncOutcome struct {
	Kind   ChangeKind `json:"kind"`
	Action SyncAction `json:"action"`
	Pushed int        `json:"pushed"`
	Error  string     `json:"error,omitempty"`
}

func (o SyncOutcome) Succeeded() bool {
	return o.Action != SyncActionFailed
}

// SyncReport aggregates one login-time or periodic sync run.
type SyncReport struct {
	UserID     uuid.UUID     `json:"user_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Outcomes   []SyncOutcome `json:"outcomes"`
}

// AllSucceeded reports whether none of the syncs failed.
func (r *SyncReport) AllSucceeded() bool {
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			return false
		}
	}
	return true
}

// Outcome returns the result for kind, if present.
func (r *SyncReport) Outcome(kind ChangeKind) (SyncOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			return o, true
		}
	}
	return SyncOutcome{}, false
}
