package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/ledger"
	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
)

func TestStudentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository(Open())

	for _, rollNo := range []string{"CS003", "CS001", "CS002"} {
		_, err := repo.Save(ctx, student.Student{ID: "id-" + rollNo, RollNo: rollNo, Partners: []string{}})
		require.NoError(t, err)
	}

	_, err := repo.Save(ctx, student.Student{ID: "other", RollNo: "CS001"})
	assert.Equal(t, student.ErrRollNoExists, err)

	s, err := repo.GetByRollNo(ctx, "CS002")
	require.NoError(t, err)
	assert.Equal(t, "id-CS002", s.ID)

	_, err = repo.Get(ctx, "nope")
	assert.True(t, core.IsNotFound(err))

	got, total, err := repo.Query(ctx, student.Filter{}, core.Page{Number: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, got, 1)
	assert.Equal(t, "CS003", got[0].RollNo)

	t.Run("returned documents are copies", func(t *testing.T) {
		s, _ := repo.Get(ctx, "id-CS001")
		s.Partners = append(s.Partners, "x")
		_, _ = s.PartnerRequests.Add("x", "", ledger.Sent)

		fresh, _ := repo.Get(ctx, "id-CS001")
		assert.Empty(t, fresh.Partners)
		assert.Empty(t, fresh.PartnerRequests)
	})

	t.Run("ledger entries are not shared", func(t *testing.T) {
		s, _ := repo.Get(ctx, "id-CS002")
		req, _ := s.PartnerRequests.Add("x", "", ledger.Sent)
		_, err := repo.Save(ctx, s)
		require.NoError(t, err)

		_, _ = s.PartnerRequests.Resolve(req.ID, ledger.StatusAccepted)
		fresh, _ := repo.Get(ctx, "id-CS002")
		assert.True(t, fresh.PartnerRequests[0].IsPending())
	})
}

func TestTeacherRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTeacherRepository(Open())

	_, err := repo.Save(ctx, teacher.Teacher{ID: "t1", Username: "smith", Email: "smith@x.io"})
	require.NoError(t, err)
	_, err = repo.Save(ctx, teacher.Teacher{ID: "t2", Username: "jones", Email: "smith@x.io"})
	assert.Equal(t, teacher.ErrEmailExists, err)

	// re-saving the same teacher is not a conflict
	_, err = repo.Save(ctx, teacher.Teacher{ID: "t1", Username: "smithy", Email: "smith@x.io"})
	assert.NoError(t, err)

	got, err := repo.GetByEmail(ctx, "smith@x.io")
	require.NoError(t, err)
	assert.Equal(t, "smithy", got.Username)
}

func TestProjectRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(Open())
	now := time.Now()

	for i, name := range []string{"old", "new"} {
		_, err := repo.Save(ctx, project.Project{
			ID:        name,
			Name:      name,
			Incharge:  "t1",
			Students:  []string{"s" + name},
			UpdatedAt: now.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	got, total, err := repo.Query(ctx, project.Filter{Incharge: "t1"}, core.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "new", got[0].ID)

	got, _, err = repo.Query(ctx, project.Filter{Student: "sold"}, core.Page{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].ID)

	require.NoError(t, repo.Delete(ctx, "old"))
	assert.True(t, core.IsNotFound(repo.Delete(ctx, "old")))
}
