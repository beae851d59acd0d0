package student

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/ledger"
)

const availableLimit = 20

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("student")
	ErrRollNoExists = errors.New("a student with this roll number already exists")
)

type (
	Repository interface {
		Get(ctx context.Context, id string) (Student, error)
		GetByRollNo(ctx context.Context, rollNo string) (Student, error)
		// Save upserts the student by ID. It returns ErrRollNoExists when the roll number is taken.
		Save(ctx context.Context, s Student) (Student, error)
		// Query returns the students matching filter ordered by roll number.
		// A zero page returns every match. The total ignores paging.
		Query(ctx context.Context, filter Filter, page core.Page) ([]Student, int64, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(rollNo string) error {
	_, err := svc.repo.GetByRollNo(context.Background(), rollNo)
	switch {
	case err == nil:
		return core.NewValidationError(ErrRollNoExists, core.FieldError{Field: "roll_no", Error: ErrRollNoExists.Error()})
	case core.IsNotFound(err):
		return nil
	default:
		return errors.Wrap(err, "checking roll number uniqueness")
	}
}

func (svc *Service) Register(ctx context.Context, ns NewStudent) (Student, error) {
	now := NowFunc().UTC()
	s := Student{
		ID:               uuid.New().String(),
		RollNo:           ns.RollNo,
		Username:         ns.Username,
		Department:       ns.Department,
		Class:            ns.Class,
		Partners:         []string{},
		PartnerRequests:  ledger.Ledger{},
		InchargeRequests: ledger.Ledger{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.SetPassword(ns.Password); err != nil {
		return Student{}, errors.Wrap(err, "setting password")
	}
	s, err := svc.repo.Save(ctx, s)
	if errors.Cause(err) == ErrRollNoExists {
		return Student{}, core.NewValidationError(err, core.FieldError{Field: "roll_no", Error: err.Error()})
	}
	return s, err
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	if id == "" {
		return Student{}, ErrNotFound
	}
	return svc.repo.Get(ctx, id)
}

func (svc *Service) GetByRollNo(ctx context.Context, rollNo string) (Student, error) {
	return svc.repo.GetByRollNo(ctx, rollNo)
}

// GetMany returns the students with the given ids, skipping missing ones.
func (svc *Service) GetMany(ctx context.Context, ids []string) ([]Student, error) {
	if len(ids) == 0 {
		return []Student{}, nil
	}
	students, _, err := svc.repo.Query(ctx, Filter{IDs: ids}, core.Page{})
	return students, err
}

func (svc *Service) Save(ctx context.Context, s Student) (Student, error) {
	s.UpdatedAt = NowFunc().UTC()
	return svc.repo.Save(ctx, s)
}

func (svc *Service) Query(ctx context.Context, filter Filter, page core.Page) ([]Student, int64, error) {
	return svc.repo.Query(ctx, filter, page)
}

// Available lists the students self could send a partner request to.
func (svc *Service) Available(ctx context.Context, self Student, search string) ([]Summary, error) {
	filter := Filter{
		Exclude:   self.Group(),
		Available: true,
		Search:    search,
	}
	filter.Clean()
	students, _, err := svc.repo.Query(ctx, filter, core.Page{Number: 1, Limit: availableLimit})
	if err != nil {
		return nil, errors.Wrap(err, "querying available students")
	}
	return Summaries(students), nil
}

func Summaries(students []Student) []Summary {
	out := make([]Summary, 0, len(students))
	for i := range students {
		out = append(out, students[i].Summary())
	}
	return out
}
