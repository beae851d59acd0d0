package ledger

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/projex/core"
)

func TestLedger_Add(t *testing.T) {
	var l Ledger

	req, err := l.Add("bob", "hi", Sent)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, "hi", req.Message)
	assert.NotEmpty(t, req.ID)
	assert.Len(t, l, 1)

	_, err = l.Add("bob", "again", Sent)
	var dupErr *DuplicateRequestError
	require.True(t, errors.As(err, &dupErr), "Add() error = %v, want *DuplicateRequestError", err)
	assert.Equal(t, "bob", dupErr.Counterpart)
	assert.Len(t, l, 1)

	// same parties, other direction
	_, err = l.Add("bob", "", Received)
	assert.NoError(t, err)

	// once resolved, a new request can be sent
	_, err = l.Resolve(req.ID, StatusRejected)
	require.NoError(t, err)
	_, err = l.Add("bob", "", Sent)
	assert.NoError(t, err)
	assert.Len(t, l, 3)
}

func TestLedger_FindPending(t *testing.T) {
	var l Ledger
	sent, _ := l.Add("bob", "", Sent)
	_, _ = l.Add("carol", "", Received)

	got, ok := l.FindPending("bob")
	assert.True(t, ok)
	assert.Equal(t, sent.ID, got.ID)

	_, ok = l.FindPending("bob", Received)
	assert.False(t, ok)

	_, ok = l.FindPending("dave")
	assert.False(t, ok)

	_, _ = l.Resolve(sent.ID, StatusAccepted)
	_, ok = l.FindPending("bob")
	assert.False(t, ok)
}

func TestLedger_Resolve(t *testing.T) {
	var l Ledger
	req, _ := l.Add("bob", "", Received)

	tests := []struct {
		name     string
		id       string
		outcome  Status
		wantErr  interface{}
		wantStat Status
	}{
		{name: "unknown id", id: "lol", outcome: StatusAccepted, wantErr: new(*core.NotFoundError), wantStat: StatusPending},
		{name: "invalid outcome", id: req.ID, outcome: StatusPending, wantErr: new(*core.ValidationError), wantStat: StatusPending},
		{name: "accept", id: req.ID, outcome: StatusAccepted, wantStat: StatusAccepted},
		{name: "accept again", id: req.ID, outcome: StatusAccepted, wantErr: new(*AlreadyResolvedError), wantStat: StatusAccepted},
		{name: "reject after accept", id: req.ID, outcome: StatusRejected, wantErr: new(*AlreadyResolvedError), wantStat: StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := l[0]
			_, err := l.Resolve(tt.id, tt.outcome)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.As(err, tt.wantErr), "Resolve() error = %v", err)
				assert.Equal(t, before, l[0], "state changed on error")
			} else {
				require.NoError(t, err)
				assert.NotNil(t, l[0].ResolvedAt)
			}
			assert.Equal(t, tt.wantStat, l[0].Status)
		})
	}
}

func TestLedger_ResolveMirror(t *testing.T) {
	var l Ledger
	old, _ := l.Add("alice", "", Sent)
	_, _ = l.Resolve(old.ID, StatusRejected)
	pending, _ := l.Add("alice", "", Sent)

	got, err := l.ResolveMirror("alice", Sent, StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)
	assert.Equal(t, StatusRejected, l[0].Status, "history entry must not change")
	assert.Equal(t, StatusAccepted, l[1].Status)

	_, err = l.ResolveMirror("alice", Sent, StatusAccepted)
	var mErr *MirrorNotFoundError
	assert.True(t, errors.As(err, &mErr))
}

func TestLedger_LatestResolved(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	var l Ledger
	first, _ := l.Add("bob", "", Received)
	now = base.Add(time.Hour)
	_, _ = l.Resolve(first.ID, StatusRejected)

	now = base.Add(2 * time.Hour)
	second, _ := l.Add("bob", "", Received)
	now = base.Add(3 * time.Hour)
	_, _ = l.Resolve(second.ID, StatusAccepted)

	got, ok := l.LatestResolved("bob", Received, base.Add(90*time.Minute))
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)

	_, ok = l.LatestResolved("bob", Received, base.Add(4*time.Hour))
	assert.False(t, ok)

	_, ok = l.LatestResolved("bob", Sent, base)
	assert.False(t, ok)
}

func TestLedger_UpdateKeepsStatus(t *testing.T) {
	var l Ledger
	req, _ := l.Add("bob", "", Received)

	err := l.Update(req.ID, func(r *Request) {
		r.Response = "welcome"
		r.Status = StatusAccepted
	})
	require.NoError(t, err)
	assert.Equal(t, "welcome", l[0].Response)
	assert.Equal(t, StatusPending, l[0].Status)

	assert.True(t, core.IsNotFound(l.Update("lol", func(*Request) {})))
}

func TestLedger_Sorted(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	var l Ledger
	a, _ := l.Add("a", "", Sent)
	now = base.Add(time.Minute)
	b, _ := l.Add("b", "", Sent)

	sorted := l.Sorted()
	assert.Equal(t, []string{b.ID, a.ID}, []string{sorted[0].ID, sorted[1].ID})
	assert.Equal(t, a.ID, l[0].ID, "original order kept")
}
