package workflow

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/ledger"
)

// Party is one side of a two-party request: the entity's id, its request ledger and how to persist it.
type Party struct {
	Ref    string // e.g. "student:<id>", used in logs and errors
	ID     string
	Ledger *ledger.Ledger
	Save   func(ctx context.Context) error
}

// Pair is the two entities holding copies of one request. A is the side acting on the request.
type Pair struct {
	A, B Party
}

type Resolution struct {
	Entry  ledger.Request  // A's copy
	Mirror *ledger.Request // B's copy; nil on drift
	Drift  bool
}

// Coordinator applies request transitions to both copies of a request as two independent writes.
// There is no transaction: A is always persisted first and is never rolled back.
type Coordinator struct {
	logger core.Logger
}

func NewCoordinator(logger core.Logger) *Coordinator {
	return &Coordinator{logger: logger}
}

// Resolve resolves requestID on A, then the mirrored pending copy on B, runs apply and persists A then B.
// A missing mirror is logged and does not abort. An apply error aborts before anything is persisted.
// apply may annotate both entries through Ledger.Update.
func (c *Coordinator) Resolve(
	ctx context.Context,
	pair Pair,
	requestID string,
	outcome ledger.Status,
	apply func(res Resolution) error,
) (Resolution, error) {
	entry, err := pair.A.Ledger.Resolve(requestID, outcome)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Entry: entry}

	mirror, err := pair.B.Ledger.ResolveMirror(pair.A.ID, entry.Direction.Opposite(), outcome)
	if err != nil {
		if _, ok := errors.Cause(err).(*ledger.MirrorNotFoundError); !ok {
			return Resolution{}, err
		}
		res.Drift = true
		c.logger.Warn("request mirror not found, resolving one side only", map[string]interface{}{
			"request": requestID,
			"saved":   pair.A.Ref,
			"drifted": pair.B.Ref,
		})
	} else {
		res.Mirror = &mirror
	}

	if apply != nil {
		if err := apply(res); err != nil {
			return Resolution{}, err
		}
	}

	return res, c.Persist(ctx, pair, requestID)
}

// Persist saves A then B. When B fails, A stays saved and a *PartialWriteError is returned.
func (c *Coordinator) Persist(ctx context.Context, pair Pair, requestID string) error {
	if err := pair.A.Save(ctx); err != nil {
		return errors.Wrapf(err, "saving %s", pair.A.Ref)
	}
	if err := pair.B.Save(ctx); err != nil {
		pwErr := &PartialWriteError{RequestID: requestID, Saved: pair.A.Ref, Failed: pair.B.Ref, Err: err}
		c.logger.Warn("partial write", pwErr)
		return pwErr
	}
	return nil
}
