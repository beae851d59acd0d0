package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/project"
)

type projectRepository struct {
	db *DB
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *DB) project.Repository {
	return &projectRepository{db: db}
}

func normalizeProject(p *project.Project) {
	if p.Students == nil {
		p.Students = []string{}
	}
	if p.Updates == nil {
		p.Updates = []project.Update{}
	}
	if p.Targets == nil {
		p.Targets = []project.Target{}
	}
}

func (repo *projectRepository) Get(ctx context.Context, id string) (project.Project, error) {
	var p project.Project
	if err := repo.db.findOne(ctx, projectsCollection, bson.M{"_id": id}, &p, project.ErrNotFound); err != nil {
		return project.Project{}, err
	}
	normalizeProject(&p)
	return p, nil
}

func (repo *projectRepository) Save(ctx context.Context, p project.Project) (project.Project, error) {
	normalizeProject(&p)
	if err := repo.db.replace(ctx, projectsCollection, p.ID, p); err != nil {
		return project.Project{}, errors.Wrap(err, "saving project")
	}
	return p, nil
}

func (repo *projectRepository) Query(ctx context.Context, filter project.Filter, page core.Page) ([]project.Project, int64, error) {
	projects := make([]project.Project, 0)
	sort := bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}}
	total, err := repo.db.find(ctx, projectsCollection, projectFilter(filter), sort, page, &projects)
	if err != nil {
		return nil, 0, err
	}
	for i := range projects {
		normalizeProject(&projects[i])
	}
	return projects, total, nil
}

func (repo *projectRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := repo.db.opCtx(ctx)
	defer cancel()

	res, err := repo.db.collection(projectsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting project")
	}
	if res.DeletedCount == 0 {
		return project.ErrNotFound
	}
	return nil
}

func projectFilter(f project.Filter) bson.M {
	filter := bson.M{}
	if f.IDs != nil {
		filter["_id"] = idFilter(f.IDs, nil)
	}
	if f.Incharge != "" {
		filter["incharge"] = f.Incharge
	}
	if f.Student != "" {
		filter["students"] = f.Student
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": contains(f.Search)},
			bson.M{"description": contains(f.Search)},
		}
	}
	return filter
}
