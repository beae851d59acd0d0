package inmemdb

import (
	"context"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) Get(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return copyStudent(*s), nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetByRollNo(_ context.Context, rollNo string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.table {
		if s.RollNo == rollNo {
			return copyStudent(*s), nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) Save(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, other := range repo.db.table {
		if id != s.ID && other.RollNo == s.RollNo {
			return student.Student{}, student.ErrRollNoExists
		}
	}
	stored := copyStudent(s)
	repo.db.table[s.ID] = &stored
	return copyStudent(stored), nil
}

func (repo *studentRepository) Query(_ context.Context, filter student.Filter, p core.Page) ([]student.Student, int64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0)
	for _, s := range repo.db.table {
		if filter.Matches(*s) {
			students = append(students, copyStudent(*s))
		}
	}
	sortBy(students, func(a, b student.Student) bool { return a.RollNo < b.RollNo })
	return page(students, p), int64(len(students)), nil
}
