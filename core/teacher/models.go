package teacher

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/ledger"
	"github.com/trezcool/projex/core/user"
)

var NowFunc = time.Now // mockable

type Teacher struct {
	user.Credentials `bson:",inline" json:"-"`

	ID               string        `json:"id" bson:"_id"`
	Username         string        `json:"username" bson:"username"`
	Email            string        `json:"email" bson:"email"`
	AssignedProjects []string      `json:"assigned_projects" bson:"assignedProjects"`
	InchargeRequests ledger.Ledger `json:"incharge_requests" bson:"inchargeRequests"`
	CreatedAt        time.Time     `json:"created_at" bson:"createdAt"`
	UpdatedAt        time.Time     `json:"updated_at" bson:"updatedAt"`
}

func (t Teacher) Identity() user.Identity {
	return user.Identity{ID: t.ID, Role: user.Teacher, Name: t.Username, Identifier: t.Email}
}

func (t *Teacher) AssignProject(id string) {
	t.AssignedProjects = core.AppendUnique(t.AssignedProjects, id)
}

func (t *Teacher) UnassignProject(id string) {
	t.AssignedProjects = core.RemoveString(t.AssignedProjects, id)
}

func (t Teacher) Summary() Summary {
	return Summary{ID: t.ID, Username: t.Username, Email: t.Email, ProjectCount: len(t.AssignedProjects)}
}

// Summary is the public view of a teacher.
type Summary struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProjectCount int    `json:"project_count"`
}

// NewTeacher contains information needed to register a Teacher.
type NewTeacher struct {
	Username string `json:"username" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwdminlen"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate, svc *Service) error {
	nt.Username = core.CleanString(nt.Username)
	nt.Email = core.CleanString(nt.Email, true /* lower */)

	if err := validate.Struct(nt); err != nil {
		return err
	}
	return svc.checkUniqueness(nt.Email)
}

// UpdateTeacher defines what a teacher may change on their profile. Empty fields are left as they are.
type UpdateTeacher struct {
	Username string `json:"username" validate:"omitempty,min=2"`
	Email    string `json:"email" validate:"omitempty,email"`
}

func (ut *UpdateTeacher) Validate(validate *validator.Validate, orig Teacher, svc *Service) error {
	ut.Username = core.CleanString(ut.Username)
	ut.Email = core.CleanString(ut.Email, true /* lower */)

	if err := validate.Struct(ut); err != nil {
		return err
	}
	if ut.Email == "" || ut.Email == orig.Email {
		return nil
	}
	return svc.checkUniqueness(ut.Email)
}

type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (l *Login) Validate(validate *validator.Validate) error {
	l.Email = core.CleanString(l.Email, true /* lower */)
	return validate.Struct(l)
}

type Filter struct {
	IDs    []string
	Search string `query:"search"`
}

func (f *Filter) Clean() {
	f.Search = core.CleanString(f.Search)
}

// Matches reports whether t satisfies f. Search is a case-insensitive match on username or email.
func (f Filter) Matches(t Teacher) bool {
	if f.IDs != nil && !core.ContainsString(f.IDs, t.ID) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Username), q) && !strings.Contains(t.Email, q) {
			return false
		}
	}
	return true
}
