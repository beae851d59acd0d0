package inmemdb

import (
	"context"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/teacher"
)

type teacherRepository struct {
	db *teacherTable
}

var _ teacher.Repository = (*teacherRepository)(nil)

func NewTeacherRepository(db *DB) teacher.Repository {
	return &teacherRepository{db: db.teacher}
}

func (repo *teacherRepository) Get(_ context.Context, id string) (teacher.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return copyTeacher(*t), nil
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) GetByEmail(_ context.Context, email string) (teacher.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, t := range repo.db.table {
		if t.Email == email {
			return copyTeacher(*t), nil
		}
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) Save(_ context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, other := range repo.db.table {
		if id != t.ID && other.Email == t.Email {
			return teacher.Teacher{}, teacher.ErrEmailExists
		}
	}
	stored := copyTeacher(t)
	repo.db.table[t.ID] = &stored
	return copyTeacher(stored), nil
}

func (repo *teacherRepository) Query(_ context.Context, filter teacher.Filter, p core.Page) ([]teacher.Teacher, int64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	teachers := make([]teacher.Teacher, 0)
	for _, t := range repo.db.table {
		if filter.Matches(*t) {
			teachers = append(teachers, copyTeacher(*t))
		}
	}
	sortBy(teachers, func(a, b teacher.Teacher) bool {
		if a.Username == b.Username {
			return a.Email < b.Email
		}
		return a.Username < b.Username
	})
	return page(teachers, p), int64(len(teachers)), nil
}
