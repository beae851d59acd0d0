package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targets(states ...bool) []Target {
	ts := make([]Target, 0, len(states))
	for _, done := range states {
		ts = append(ts, Target{ID: NewID(), Title: "t", Completed: done})
	}
	return ts
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name    string
		targets []Target
		want    int
	}{
		{name: "no targets", want: 0},
		{name: "none completed", targets: targets(false, false), want: 0},
		{name: "half", targets: targets(true, false), want: 50},
		{name: "all", targets: targets(true, true, true), want: 100},
		{name: "one third rounds down", targets: targets(true, false, false), want: 33},
		{name: "two thirds rounds up", targets: targets(true, true, false), want: 67},
		{name: "one eighth is 12.5, rounds half up", targets: targets(true, false, false, false, false, false, false, false), want: 13},
		{name: "one of 200 is 0.5, rounds half up", targets: append(targets(true), make([]Target, 199)...), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Progress(tt.targets))
		})
	}
}

func TestProject_SetTargetCompleted(t *testing.T) {
	p := New("P", "teacher")
	p.ReplaceTargets([]NewTarget{{Title: "a"}, {Title: "b"}})
	require.Equal(t, 0, p.Progress)

	// marking the first target completed => 50
	first := p.Targets[0].ID
	got, err := p.SetTargetCompleted(first, true)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, 50, p.Progress)

	// round-trip: un-completing restores the previous progress
	got, err = p.SetTargetCompleted(first, false)
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)
	assert.Equal(t, 0, p.Progress)

	_, err = p.SetTargetCompleted("lol", true)
	assert.Error(t, err)
}

func TestProject_AddTargetRoundTrip(t *testing.T) {
	p := New("P", "teacher")
	p.ReplaceTargets([]NewTarget{{Title: "a", Completed: true}, {Title: "b"}, {Title: "c"}})
	before := p.Progress
	require.Equal(t, 33, before)

	added := p.AddTarget(NewTarget{Title: "d"})
	assert.Equal(t, 25, p.Progress)
	_, _ = p.SetTargetCompleted(added.ID, true)
	assert.Equal(t, 50, p.Progress)
	_, _ = p.SetTargetCompleted(added.ID, false)
	assert.Equal(t, 25, p.Progress)
}

func TestProject_ReplaceTargetsKeepsHistory(t *testing.T) {
	p := New("P", "teacher")
	p.ReplaceTargets([]NewTarget{{Title: "a", Completed: true}, {Title: "b"}})
	kept := p.Targets[0]

	p.ReplaceTargets([]NewTarget{
		{ID: kept.ID, Title: "a (renamed)", Completed: true},
		{Title: "c", Completed: true},
		{Title: "d"},
		{Title: "e"},
	})
	require.Len(t, p.Targets, 4)
	assert.Equal(t, kept.ID, p.Targets[0].ID)
	assert.Equal(t, "a (renamed)", p.Targets[0].Title)
	assert.Equal(t, kept.CreatedAt, p.Targets[0].CreatedAt)
	assert.Equal(t, kept.CompletedAt, p.Targets[0].CompletedAt)
	assert.Equal(t, 50, p.Progress)

	p.ReplaceTargets([]NewTarget{})
	assert.Empty(t, p.Targets)
	assert.Equal(t, 0, p.Progress)
}
