// Package enrollment maintains the two-sided link between a user and an
// event: the event id in the user's enrolled_events and the user id in the
// event's enrolled_users.
//
// The store has no multi-path transactions, so the two sides are written one
// after the other, user side first. A failure between the writes leaves the
// pair PartiallyLinked; Reconciler repairs such pairs by making event rosters
// agree with user records.
package enrollment

import "errors"

// Result classifies the outcome of Enroll and Unenroll.
type Result int

const (
	Success Result = iota
	// NotFound means the user or the event does not exist. Nothing was written;
	// a record that disappears after the user side was written is reported as
	// StoreUnavailable instead.
	NotFound
	// StoreUnavailable means a store call failed. The pair may be partially linked.
	StoreUnavailable
	// Conflict means conditional writes kept losing to concurrent writers.
	Conflict
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case NotFound:
		return "not_found"
	case StoreUnavailable:
		return "store_unavailable"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// LinkState describes how far a user/event pair is linked.
type LinkState int

const (
	Unlinked LinkState = iota
	Linked
	PartiallyLinked
)

func (s LinkState) String() string {
	switch s {
	case Unlinked:
		return "unlinked"
	case Linked:
		return "linked"
	case PartiallyLinked:
		return "partially_linked"
	default:
		return "unknown"
	}
}

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEventNotFound = errors.New("event not found")
	ErrConflict      = errors.New("enrollment list kept changing concurrently")
)
