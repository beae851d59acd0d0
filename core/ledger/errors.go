package ledger

import "fmt"

// DuplicateRequestError is returned when a pending request already exists between the same parties.
type DuplicateRequestError struct {
	Counterpart string
	Direction   Direction
}

func (err DuplicateRequestError) Error() string {
	return "a pending request already exists"
}

// AlreadyResolvedError is returned when responding to a request that is no longer pending.
type AlreadyResolvedError struct {
	RequestID string
	Status    Status
}

func (err AlreadyResolvedError) Error() string {
	return fmt.Sprintf("request already %s", err.Status)
}

// MirrorNotFoundError means the counterpart holds no pending copy of a request (data drift).
type MirrorNotFoundError struct {
	Counterpart string
	Direction   Direction
}

func (err MirrorNotFoundError) Error() string {
	return fmt.Sprintf("no pending %s request for %s", err.Direction, err.Counterpart)
}
