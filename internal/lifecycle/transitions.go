package lifecycle

import "github.com/cuongbtq/interpreter-booking/internal/domain"

// guard lists what an admin status change must supply
type guard struct {
	comments    bool
	sessionTime bool
	translator  bool
}

// transitions is keyed by the status being left. A missing edge is not allowed.
// An admin may move a pending job anywhere; only timedout needs a comment.
var transitions = map[domain.JobStatus]map[domain.JobStatus]guard{
	domain.JobStatusPending: {
		domain.JobStatusAssigned:              {},
		domain.JobStatusStarted:               {},
		domain.JobStatusCompleted:             {},
		domain.JobStatusTimedOut:              {comments: true},
		domain.JobStatusWithdrawBefore24:      {},
		domain.JobStatusWithdrawAfter24:       {},
		domain.JobStatusNotCarriedOutCustomer: {},
	},
	domain.JobStatusTimedOut: {
		domain.JobStatusPending:  {},
		domain.JobStatusAssigned: {translator: true},
	},
	domain.JobStatusCompleted: {
		domain.JobStatusTimedOut: {comments: true},
	},
	domain.JobStatusStarted: {
		domain.JobStatusCompleted: {sessionTime: true},
	},
	domain.JobStatusWithdrawAfter24: {
		domain.JobStatusTimedOut: {comments: true},
	},
	domain.JobStatusAssigned: {
		domain.JobStatusWithdrawBefore24: {},
		domain.JobStatusWithdrawAfter24:  {},
		domain.JobStatusTimedOut:         {comments: true},
	},
}

// CanTransition reports whether the table has an edge from -> to.
func CanTransition(from, to domain.JobStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

// checkTransition validates a status change against the table and its guard.
func checkTransition(from, to domain.JobStatus, comments, sessionTime string, translatorChanged bool) error {
	g, ok := transitions[from][to]
	if !ok {
		return domain.NewConflict(domain.ErrTransitionNotAllowed,
			"cannot change status from "+string(from)+" to "+string(to))
	}
	if g.comments && comments == "" {
		return domain.NewConflict(domain.ErrGuardFailed, "admin comments are required for status "+string(to))
	}
	if g.sessionTime && sessionTime == "" {
		return domain.NewConflict(domain.ErrGuardFailed, "session time is required to complete a started job")
	}
	if g.translator && !translatorChanged {
		return domain.NewConflict(domain.ErrGuardFailed, "a new translator is required for status "+string(to))
	}
	return nil
}
