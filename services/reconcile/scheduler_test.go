package reconcile

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReconciler struct {
	mu    sync.Mutex
	calls int
	err   error
	ran   chan struct{}
}

func (f *fakeReconciler) ReconcileAll(ctx context.Context) (int, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.ran != nil {
		select {
		case f.ran <- struct{}{}:
		default:
		}
	}
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("missing deadline")
	}
	return 3, f.err
}

type lines struct {
	mu   sync.Mutex
	msgs []string
}

func (l *lines) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, level+": "+msg)
}

func (l *lines) Debug(msg string, _ ...interface{}) { l.add("debug", msg) }
func (l *lines) Info(msg string, _ ...interface{})  { l.add("info", msg) }
func (l *lines) Warn(msg string, _ ...interface{})  { l.add("warn", msg) }
func (l *lines) Error(msg string, _ ...interface{}) { l.add("error", msg) }
func (l *lines) Fatal(msg string, _ ...interface{}) { l.add("fatal", msg) }

func (l *lines) contains(s string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.msgs {
		if strings.Contains(m, s) {
			return true
		}
	}
	return false
}

func TestScheduler_Run(t *testing.T) {
	rec := &fakeReconciler{}
	log := &lines{}
	s := NewScheduler(rec, log, "@every 1h", time.Minute)

	s.Run()
	assert.Equal(t, 1, rec.calls)
	assert.True(t, log.contains("info: reconciliation done"))

	rec.err = errors.New("db down")
	s.Run()
	assert.True(t, log.contains("error: reconciliation failed"))
}

func TestScheduler_Start(t *testing.T) {
	t.Run("invalid schedule", func(t *testing.T) {
		s := NewScheduler(&fakeReconciler{}, &lines{}, "every now and then", time.Minute)
		assert.Error(t, s.Start())
	})

	t.Run("runs on schedule", func(t *testing.T) {
		rec := &fakeReconciler{ran: make(chan struct{}, 1)}
		s := NewScheduler(rec, &lines{}, "* * * * * *", time.Minute)
		require.NoError(t, s.Start())
		defer s.Stop()

		select {
		case <-rec.ran:
		case <-time.After(3 * time.Second):
			t.Fatal("reconciliation did not run")
		}
	})
}
