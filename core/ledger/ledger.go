// Package ledger keeps the per-entity lists of partner and incharge requests.
//
// A Ledger only ever mutates itself: resolving the counterpart's copy of a request
// is the job of the caller (see core/workflow).
package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// IsOutcome reports whether s is a valid resolution outcome.
func (s Status) IsOutcome() bool {
	return s == StatusAccepted || s == StatusRejected
}

type Direction string

const (
	Sent     Direction = "sent"
	Received Direction = "received"
)

// Opposite returns the direction of the mirrored copy of a request.
func (d Direction) Opposite() Direction {
	if d == Sent {
		return Received
	}
	return Sent
}

var (
	NowFunc = time.Now // mockable
	NewID   = func() string { return uuid.New().String() }
)

// Request is one side of a two-party request.
type Request struct {
	ID          string     `json:"id" bson:"id"`
	Counterpart string     `json:"counterpart" bson:"counterpart"`
	Direction   Direction  `json:"direction" bson:"direction"`
	Status      Status     `json:"status" bson:"status"`
	Message     string     `json:"message,omitempty" bson:"message,omitempty"`
	Response    string     `json:"response,omitempty" bson:"response,omitempty"`
	ProjectID   string     `json:"project_id,omitempty" bson:"projectId,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"createdAt"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty" bson:"resolvedAt,omitempty"`
}

func (r Request) IsPending() bool { return r.Status == StatusPending }

// Ledger is the ordered request history of one entity. Entries are never removed.
type Ledger []Request

// Add appends a pending request to counterpart.
func (l *Ledger) Add(counterpart, message string, dir Direction) (Request, error) {
	if _, ok := l.FindPending(counterpart, dir); ok {
		return Request{}, &DuplicateRequestError{Counterpart: counterpart, Direction: dir}
	}
	req := Request{
		ID:          NewID(),
		Counterpart: counterpart,
		Direction:   dir,
		Status:      StatusPending,
		Message:     message,
		CreatedAt:   NowFunc().UTC(),
	}
	*l = append(*l, req)
	return req, nil
}

// FindPending returns the pending request with counterpart, in any direction unless one is given.
func (l Ledger) FindPending(counterpart string, dir ...Direction) (Request, bool) {
	if i := l.indexPending(counterpart, dir...); i >= 0 {
		return l[i], true
	}
	return Request{}, false
}

func (l Ledger) indexPending(counterpart string, dir ...Direction) int {
	for i, req := range l {
		if req.Counterpart != counterpart || !req.IsPending() {
			continue
		}
		if len(dir) > 0 && req.Direction != dir[0] {
			continue
		}
		return i
	}
	return -1
}

func (l Ledger) Get(id string) (Request, error) {
	for _, req := range l {
		if req.ID == id {
			return req, nil
		}
	}
	return Request{}, core.NewNotFoundError("request", id)
}

// Resolve moves the request identified by id from pending to outcome.
func (l Ledger) Resolve(id string, outcome Status) (Request, error) {
	if !outcome.IsOutcome() {
		return Request{}, invalidOutcome(outcome)
	}
	for i := range l {
		if l[i].ID != id {
			continue
		}
		if !l[i].IsPending() {
			return Request{}, &AlreadyResolvedError{RequestID: id, Status: l[i].Status}
		}
		l.resolveAt(i, outcome)
		return l[i], nil
	}
	return Request{}, core.NewNotFoundError("request", id)
}

// ResolveMirror resolves the pending copy of a request held for counterpart in direction dir.
// The two copies of a request have independent ids, so they are matched by counterpart and status.
func (l Ledger) ResolveMirror(counterpart string, dir Direction, outcome Status) (Request, error) {
	if !outcome.IsOutcome() {
		return Request{}, invalidOutcome(outcome)
	}
	i := l.indexPending(counterpart, dir)
	if i < 0 {
		return Request{}, &MirrorNotFoundError{Counterpart: counterpart, Direction: dir}
	}
	l.resolveAt(i, outcome)
	return l[i], nil
}

func (l Ledger) resolveAt(i int, outcome Status) {
	now := NowFunc().UTC()
	l[i].Status = outcome
	l[i].ResolvedAt = &now
}

// Update applies fn to the request with id. Status changes made by fn are discarded.
func (l Ledger) Update(id string, fn func(req *Request)) error {
	for i := range l {
		if l[i].ID == id {
			status := l[i].Status
			fn(&l[i])
			l[i].Status = status
			return nil
		}
	}
	return core.NewNotFoundError("request", id)
}

func (l Ledger) Pending() Ledger {
	var out Ledger
	for _, req := range l {
		if req.IsPending() {
			out = append(out, req)
		}
	}
	return out
}

// LatestResolved returns the most recently resolved request with counterpart in direction dir
// that was resolved no earlier than since.
func (l Ledger) LatestResolved(counterpart string, dir Direction, since time.Time) (Request, bool) {
	var found Request
	var ok bool
	for _, req := range l {
		if req.Counterpart != counterpart || req.Direction != dir || req.IsPending() || req.ResolvedAt == nil {
			continue
		}
		if req.ResolvedAt.Before(since) {
			continue
		}
		if !ok || req.ResolvedAt.After(*found.ResolvedAt) {
			found, ok = req, true
		}
	}
	return found, ok
}

// Sorted returns a copy of the ledger, newest first.
func (l Ledger) Sorted() Ledger {
	out := make(Ledger, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func invalidOutcome(outcome Status) error {
	return core.NewValidationError(
		errors.Errorf("invalid outcome %q", outcome),
		core.FieldError{Field: "status", Error: "status must be one of: accepted, rejected"},
	)
}
