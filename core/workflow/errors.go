package workflow

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	errSelfRequest     = errors.New("you cannot send a partner request to yourself")
	errAlreadyPartners = errors.New("you are already partners with this student")
	errHasProject      = errors.New("you already have a project assigned")
	errPartnerAssigned = errors.New("one of your partners already has a project assigned")
	errNotReceived     = errors.New("you can only respond to requests you received")
)

// CapacityExceededError is returned when a student already has the maximum number of partners.
type CapacityExceededError struct {
	StudentID string
}

func (err CapacityExceededError) Error() string {
	return "partner limit reached"
}

// AlreadyAssignedError is returned when a student being attached to a project already has another one.
type AlreadyAssignedError struct {
	StudentID string
	ProjectID string
}

func (err AlreadyAssignedError) Error() string {
	return "student already has a project assigned"
}

// PartialWriteError means the first document of a pair was persisted but the second was not.
// The first write is kept; read-repair will close the gap.
type PartialWriteError struct {
	RequestID string
	Saved     string
	Failed    string
	Err       error
}

func (err PartialWriteError) Error() string {
	return fmt.Sprintf("request %s: saved %s but not %s: %v", err.RequestID, err.Saved, err.Failed, err.Err)
}

func (err PartialWriteError) Unwrap() error { return err.Err }
