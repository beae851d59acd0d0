package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/user"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), core.NewTestConfig())

	id := user.Identity{ID: "s1", Role: user.Student, Identifier: "CS001"}
	logger.Warn("partial write", errors.New("boom"), map[string]interface{}{"request": "r1"}, id)

	out := buf.String()
	assert.Contains(t, out, "[WARN] partial write")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "r1")
	assert.NotContains(t, out, "CS001", "identity is reported, not printed")
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := RollbarLogger{}
	args := logger.prepare("msg", []interface{}{
		user.Identity{ID: "a"},
		errors.New("x"),
		user.Identity{ID: "b"},
	})
	assert.Len(t, args, 2)
	assert.Equal(t, "msg", args[0])
}

func TestPerson(t *testing.T) {
	tests := []struct {
		name                string
		id                  user.Identity
		wantUser, wantEmail string
	}{
		{"student", user.Identity{ID: "s1", Role: user.Student, Name: "amani", Identifier: "CS001"}, "amani", ""},
		{"teacher", user.Identity{ID: "t1", Role: user.Teacher, Name: "mrsmith", Identifier: "smith@projex.test"}, "mrsmith", "smith@projex.test"},
		{"admin without name", user.Identity{ID: "root", Role: user.Admin, Identifier: "root"}, "root", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, username, email := person(tt.id)
			assert.Equal(t, tt.id.ID, id)
			assert.Equal(t, tt.wantUser, username)
			assert.Equal(t, tt.wantEmail, email)
		})
	}
}
