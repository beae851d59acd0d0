package student

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/ledger"
	"github.com/trezcool/projex/core/user"
)

// MaxPartners is the maximum number of partners a student may have.
const MaxPartners = 4

var NowFunc = time.Now // mockable

type Student struct {
	user.Credentials `bson:",inline" json:"-"`

	ID               string        `json:"id" bson:"_id"`
	RollNo           string        `json:"roll_no" bson:"rollNo"`
	Username         string        `json:"username" bson:"username"`
	Department       string        `json:"department" bson:"department"`
	Class            string        `json:"class" bson:"class"`
	Project          string        `json:"project,omitempty" bson:"project,omitempty"`
	Partners         []string      `json:"partners" bson:"partners"`
	PartnerRequests  ledger.Ledger `json:"partner_requests" bson:"partnerRequests"`
	InchargeRequests ledger.Ledger `json:"incharge_requests" bson:"inchargeRequests"`
	CreatedAt        time.Time     `json:"created_at" bson:"createdAt"`
	UpdatedAt        time.Time     `json:"updated_at" bson:"updatedAt"`
}

func (s Student) Identity() user.Identity {
	return user.Identity{ID: s.ID, Role: user.Student, Name: s.Username, Identifier: s.RollNo}
}

func (s Student) HasProject() bool { return s.Project != "" }

func (s Student) HasPartner(id string) bool {
	return core.ContainsString(s.Partners, id)
}

// AtCapacity reports whether the student cannot take another partner.
func (s Student) AtCapacity() bool {
	return len(s.Partners) >= MaxPartners
}

// AddPartner adds id to the partners, keeping insertion order and uniqueness.
func (s *Student) AddPartner(id string) {
	s.Partners = core.AppendUnique(s.Partners, id)
}

// Group returns the student followed by their partners.
func (s Student) Group() []string {
	return append([]string{s.ID}, s.Partners...)
}

func (s Student) Summary() Summary {
	return Summary{
		ID:           s.ID,
		RollNo:       s.RollNo,
		Username:     s.Username,
		Department:   s.Department,
		Class:        s.Class,
		HasProject:   s.HasProject(),
		PartnerCount: len(s.Partners),
	}
}

// Summary is the public view of a student, shown to other users.
type Summary struct {
	ID           string `json:"id"`
	RollNo       string `json:"roll_no"`
	Username     string `json:"username"`
	Department   string `json:"department"`
	Class        string `json:"class"`
	HasProject   bool   `json:"has_project"`
	PartnerCount int    `json:"partner_count"`
}

// NewStudent contains information needed to register a Student.
type NewStudent struct {
	RollNo     string `json:"roll_no" validate:"required,rollno"`
	Username   string `json:"username" validate:"required,min=2"`
	Password   string `json:"password" validate:"required,pwdminlen"`
	Department string `json:"department"`
	Class      string `json:"class"`
}

func (ns *NewStudent) Validate(validate *validator.Validate, svc *Service) error {
	ns.RollNo = strings.ToUpper(core.CleanString(ns.RollNo))
	ns.Username = core.CleanString(ns.Username)
	ns.Department = core.CleanString(ns.Department)
	ns.Class = core.CleanString(ns.Class)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ns.RollNo)
}

type Login struct {
	RollNo   string `json:"roll_no" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (l *Login) Validate(validate *validator.Validate) error {
	l.RollNo = strings.ToUpper(core.CleanString(l.RollNo))
	return validate.Struct(l)
}

type Filter struct {
	IDs        []string
	Exclude    []string
	Available  bool // fewer than MaxPartners partners
	Search     string `query:"search"`
	Department string `query:"department"`
	HasProject *bool  `query:"has_project"`
}

func (f *Filter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.Department = core.CleanString(f.Department)
}

// Matches reports whether s satisfies every set field of f.
// Search is a case-insensitive match on the roll number or username.
func (f Filter) Matches(s Student) bool {
	if f.IDs != nil && !core.ContainsString(f.IDs, s.ID) {
		return false
	}
	if core.ContainsString(f.Exclude, s.ID) {
		return false
	}
	if f.Available && s.AtCapacity() {
		return false
	}
	if f.Department != "" && !strings.EqualFold(s.Department, f.Department) {
		return false
	}
	if f.HasProject != nil && s.HasProject() != *f.HasProject {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(s.RollNo), q) && !strings.Contains(strings.ToLower(s.Username), q) {
			return false
		}
	}
	return true
}
