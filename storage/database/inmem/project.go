package inmemdb

import (
	"context"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/project"
)

type projectRepository struct {
	db *projectTable
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *DB) project.Repository {
	return &projectRepository{db: db.project}
}

func (repo *projectRepository) Get(_ context.Context, id string) (project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return copyProject(*p), nil
	}
	return project.Project{}, project.ErrNotFound
}

func (repo *projectRepository) Save(_ context.Context, p project.Project) (project.Project, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := copyProject(p)
	repo.db.table[p.ID] = &stored
	return copyProject(stored), nil
}

func (repo *projectRepository) Query(_ context.Context, filter project.Filter, p core.Page) ([]project.Project, int64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	projects := make([]project.Project, 0)
	for _, prj := range repo.db.table {
		if filter.Matches(*prj) {
			projects = append(projects, copyProject(*prj))
		}
	}
	sortBy(projects, func(a, b project.Project) bool {
		if a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.ID < b.ID
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	})
	return page(projects, p), int64(len(projects)), nil
}

func (repo *projectRepository) Delete(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return project.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
