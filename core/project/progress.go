package project

import "time"

// Progress is the rounded (half up) percentage of completed targets, 0 when there are none.
func Progress(targets []Target) int {
	total := len(targets)
	if total == 0 {
		return 0
	}
	var completed int
	for _, t := range targets {
		if t.Completed {
			completed++
		}
	}
	// round(100*c/t) half up == floor((200*c + t) / 2t)
	return (200*completed + total) / (2 * total)
}

// Recompute derives Progress from the current targets. Every target mutation calls it.
func (p *Project) Recompute() {
	p.Progress = Progress(p.Targets)
}

// ReplaceTargets swaps the whole target list. Targets referenced by ID keep their creation time,
// and their completion time while they stay completed.
func (p *Project) ReplaceTargets(targets []NewTarget) {
	now := NowFunc().UTC()
	newTargets := make([]Target, 0, len(targets))
	for _, nt := range targets {
		t := Target{
			ID:          NewID(),
			Title:       nt.Title,
			Description: nt.Description,
			CreatedAt:   now,
		}
		if nt.ID != "" {
			if orig, err := p.target(nt.ID); err == nil {
				t.ID = orig.ID
				t.CreatedAt = orig.CreatedAt
				if orig.Completed {
					t.CompletedAt = orig.CompletedAt
				}
			}
		}
		setCompleted(&t, nt.Completed, now)
		newTargets = append(newTargets, t)
	}
	p.Targets = newTargets
	p.Recompute()
}

// AddTarget appends a single target.
func (p *Project) AddTarget(nt NewTarget) Target {
	now := NowFunc().UTC()
	t := Target{
		ID:          NewID(),
		Title:       nt.Title,
		Description: nt.Description,
		CreatedAt:   now,
	}
	setCompleted(&t, nt.Completed, now)
	p.Targets = append(p.Targets, t)
	p.Recompute()
	return t
}

// SetTargetCompleted toggles one target's completed flag.
func (p *Project) SetTargetCompleted(targetID string, completed bool) (Target, error) {
	t, err := p.target(targetID)
	if err != nil {
		return Target{}, err
	}
	setCompleted(t, completed, NowFunc().UTC())
	p.Recompute()
	return *t, nil
}

func setCompleted(t *Target, completed bool, now time.Time) {
	if completed && t.CompletedAt == nil {
		t.CompletedAt = &now
	}
	if !completed {
		t.CompletedAt = nil
	}
	t.Completed = completed
}
