package user

import (
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Role is the closed set of account kinds. The zero Role is not a valid role;
// values outside Student, Teacher and Admin cannot be built outside this package.
type Role struct {
	name string
}

var (
	Student = Role{"student"}
	Teacher = Role{"teacher"}
	Admin   = Role{"admin"}

	Roles = []Role{Student, Teacher, Admin}
)

func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if r.name == s {
			return r, nil
		}
	}
	return Role{}, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string { return r.name }
func (r Role) IsZero() bool   { return r.name == "" }

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.name)
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Capability is something an authenticated role may do.
type Capability int

const (
	CapSendRequests Capability = iota + 1
	CapPostUpdates
	CapRespondIncharge
	CapReviewProjects
	CapManageProjects
	CapManageAccounts
)

var capabilities = map[Role][]Capability{
	Student: {CapSendRequests, CapPostUpdates},
	Teacher: {CapRespondIncharge, CapReviewProjects},
	Admin:   {CapManageProjects, CapManageAccounts},
}

// Can reports whether r grants c.
func (r Role) Can(c Capability) bool {
	for _, capa := range capabilities[r] {
		if capa == c {
			return true
		}
	}
	return false
}

// Identity is who is performing a request.
type Identity struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	Name       string `json:"name"`
	Identifier string `json:"identifier"` // roll number, email or admin id
}

// PasswordCost is the bcrypt cost used for new hashes.
var PasswordCost = bcrypt.DefaultCost // mockable

// Credentials holds a password hash; embedded by every account document.
type Credentials struct {
	PasswordHash []byte `json:"-" bson:"passwordHash"`
}

func (c *Credentials) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), PasswordCost)
	if err != nil {
		return err
	}
	c.PasswordHash = hash
	return nil
}

func (c *Credentials) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(pwd))
}
