package project

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/projex/core"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusOnHold    Status = "on-hold"
)

var Statuses = []Status{StatusActive, StatusCompleted, StatusOnHold}

var (
	NowFunc = time.Now // mockable
	NewID   = func() string { return uuid.New().String() }
)

type Update struct {
	ID              string    `json:"id" bson:"id"`
	Student         string    `json:"student" bson:"student"`
	Description     string    `json:"description" bson:"description"`
	Screenshots     []string  `json:"screenshots" bson:"screenshots"`
	Report          string    `json:"report" bson:"report"`
	Timestamp       time.Time `json:"timestamp" bson:"timestamp"`
	LastEdited      time.Time `json:"last_edited" bson:"lastEdited"`
	InchargeComment string    `json:"incharge_comment,omitempty" bson:"inchargeComment,omitempty"`
}

type Target struct {
	ID          string     `json:"id" bson:"id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	Completed   bool       `json:"completed" bson:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"createdAt"`
}

type Project struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Incharge    string    `json:"incharge" bson:"incharge"`
	Students    []string  `json:"students" bson:"students"`
	Updates     []Update  `json:"updates" bson:"updates"`
	Targets     []Target  `json:"targets" bson:"targets"`
	Status      Status    `json:"status" bson:"status"`
	Progress    int       `json:"progress" bson:"progress"`
	CreatedAt   time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updatedAt"`
}

// New returns an active Project with no targets (progress 0).
func New(name, incharge string, students ...string) Project {
	now := NowFunc().UTC()
	p := Project{
		ID:        NewID(),
		Name:      name,
		Incharge:  incharge,
		Students:  []string{},
		Updates:   []Update{},
		Targets:   []Target{},
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, s := range students {
		p.AddStudent(s)
	}
	return p
}

func (p Project) HasStudent(id string) bool {
	return core.ContainsString(p.Students, id)
}

// AddStudent adds id to the members, reporting whether it was missing.
func (p *Project) AddStudent(id string) bool {
	if p.HasStudent(id) {
		return false
	}
	p.Students = append(p.Students, id)
	return true
}

func (p *Project) RemoveStudent(id string) {
	p.Students = core.RemoveString(p.Students, id)
}

func (p *Project) Touch() {
	p.UpdatedAt = NowFunc().UTC()
}

// CompletedTargets returns the number of completed targets.
func (p Project) CompletedTargets() int {
	var n int
	for _, t := range p.Targets {
		if t.Completed {
			n++
		}
	}
	return n
}

// UpdatesNewestFirst returns a copy of the updates, newest first.
func (p Project) UpdatesNewestFirst() []Update {
	out := make([]Update, 0, len(p.Updates))
	for i := len(p.Updates) - 1; i >= 0; i-- {
		out = append(out, p.Updates[i])
	}
	return out
}

func (p *Project) update(id string) (*Update, error) {
	for i := range p.Updates {
		if p.Updates[i].ID == id {
			return &p.Updates[i], nil
		}
	}
	return nil, core.NewNotFoundError("update", id)
}

func (p *Project) target(id string) (*Target, error) {
	for i := range p.Targets {
		if p.Targets[i].ID == id {
			return &p.Targets[i], nil
		}
	}
	return nil, core.NewNotFoundError("target", id)
}

// NewUpdate is a daily progress update posted by a student.
type NewUpdate struct {
	Description string   `json:"description" validate:"required,notblank"`
	Report      string   `json:"report"`
	Screenshots []string `json:"screenshots" validate:"omitempty,dive,url"`
	Name        string   `json:"name"` // optional project rename
}

func (nu *NewUpdate) Validate(validate *validator.Validate) error {
	nu.Description = core.CleanString(nu.Description)
	nu.Name = core.CleanString(nu.Name)
	return validate.Struct(nu)
}

// EditUpdate defines what a student may change on one of their updates.
type EditUpdate struct {
	Description string   `json:"description" validate:"required,notblank"`
	Report      string   `json:"report"`
	Screenshots []string `json:"screenshots" validate:"omitempty,dive,url"`
}

func (eu *EditUpdate) Validate(validate *validator.Validate) error {
	eu.Description = core.CleanString(eu.Description)
	return validate.Struct(eu)
}

type Comment struct {
	Comment string `json:"comment" validate:"required,notblank"`
}

func (c *Comment) Validate(validate *validator.Validate) error {
	c.Comment = core.CleanString(c.Comment)
	return validate.Struct(c)
}

// NewTarget describes a target when replacing or adding targets.
// ID is set when an existing target is kept through a replacement.
type NewTarget struct {
	ID          string `json:"id"`
	Title       string `json:"title" validate:"required,notblank"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

type ReplaceTargets struct {
	Targets []NewTarget `json:"targets" validate:"required,dive"`
}

func (rt *ReplaceTargets) Validate(validate *validator.Validate) error {
	for i := range rt.Targets {
		rt.Targets[i].Title = core.CleanString(rt.Targets[i].Title)
		rt.Targets[i].Description = core.CleanString(rt.Targets[i].Description)
	}
	return validate.Struct(rt)
}

func (nt *NewTarget) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	return validate.Struct(nt)
}

type ToggleTarget struct {
	Completed *bool `json:"completed" validate:"required"`
}

func (tt *ToggleTarget) Validate(validate *validator.Validate) error {
	return validate.Struct(tt)
}

// NewProject is used by teachers to open a project, and by admins together with a student list.
type NewProject struct {
	Name        string `json:"name" validate:"required,notblank"`
	Description string `json:"description"`
}

func (np *NewProject) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	return validate.Struct(np)
}

// UpdateProject defines what an incharge may change on a project. Empty fields are left as they are.
type UpdateProject struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      Status `json:"status" validate:"omitempty,project_status"`
}

func (up *UpdateProject) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	up.Description = core.CleanString(up.Description)
	up.Status = Status(core.CleanString(string(up.Status), true /* lower */))
	return validate.Struct(up)
}

type Filter struct {
	IDs      []string
	Incharge string
	Student  string
	Status   Status `query:"status"`
	Search   string `query:"search"`
}

func (f *Filter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.Status = Status(core.CleanString(string(f.Status), true /* lower */))
}

// Matches reports whether p satisfies every set field of f. Search is a case-insensitive
// match on the name or description.
func (f Filter) Matches(p Project) bool {
	if f.IDs != nil && !core.ContainsString(f.IDs, p.ID) {
		return false
	}
	if f.Incharge != "" && p.Incharge != f.Incharge {
		return false
	}
	if f.Student != "" && !p.HasStudent(f.Student) {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Search != "" {
		s := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), s) && !strings.Contains(strings.ToLower(p.Description), s) {
			return false
		}
	}
	return true
}
