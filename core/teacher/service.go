package teacher

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/ledger"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("teacher")
	ErrEmailExists = errors.New("a teacher with this email already exists")
)

type (
	Repository interface {
		Get(ctx context.Context, id string) (Teacher, error)
		GetByEmail(ctx context.Context, email string) (Teacher, error)
		// Save upserts the teacher by ID. It returns ErrEmailExists when the email is taken.
		Save(ctx context.Context, t Teacher) (Teacher, error)
		// Query returns the teachers matching filter ordered by username.
		Query(ctx context.Context, filter Filter, page core.Page) ([]Teacher, int64, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(email string) error {
	_, err := svc.repo.GetByEmail(context.Background(), email)
	switch {
	case err == nil:
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	case core.IsNotFound(err):
		return nil
	default:
		return errors.Wrap(err, "checking email uniqueness")
	}
}

func (svc *Service) emailTaken(err error) error {
	if errors.Cause(err) == ErrEmailExists {
		return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
	}
	return err
}

func (svc *Service) Register(ctx context.Context, nt NewTeacher) (Teacher, error) {
	now := NowFunc().UTC()
	t := Teacher{
		ID:               uuid.New().String(),
		Username:         nt.Username,
		Email:            nt.Email,
		AssignedProjects: []string{},
		InchargeRequests: ledger.Ledger{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := t.SetPassword(nt.Password); err != nil {
		return Teacher{}, errors.Wrap(err, "setting password")
	}
	t, err := svc.repo.Save(ctx, t)
	return t, svc.emailTaken(err)
}

func (svc *Service) Get(ctx context.Context, id string) (Teacher, error) {
	if id == "" {
		return Teacher{}, ErrNotFound
	}
	return svc.repo.Get(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Teacher, error) {
	return svc.repo.GetByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Save(ctx context.Context, t Teacher) (Teacher, error) {
	t.UpdatedAt = NowFunc().UTC()
	return svc.repo.Save(ctx, t)
}

func (svc *Service) UpdateProfile(ctx context.Context, t Teacher, ut UpdateTeacher) (Teacher, error) {
	if ut.Username != "" {
		t.Username = ut.Username
	}
	if ut.Email != "" {
		t.Email = ut.Email
	}
	t, err := svc.Save(ctx, t)
	return t, svc.emailTaken(err)
}

func (svc *Service) Query(ctx context.Context, filter Filter, page core.Page) ([]Teacher, int64, error) {
	return svc.repo.Query(ctx, filter, page)
}

func Summaries(teachers []Teacher) []Summary {
	out := make([]Summary, 0, len(teachers))
	for i := range teachers {
		out = append(out, teachers[i].Summary())
	}
	return out
}
