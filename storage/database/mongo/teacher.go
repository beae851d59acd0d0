package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/ledger"
	"github.com/trezcool/projex/core/teacher"
)

type teacherRepository struct {
	db *DB
}

var _ teacher.Repository = (*teacherRepository)(nil)

func NewTeacherRepository(db *DB) teacher.Repository {
	return &teacherRepository{db: db}
}

func normalizeTeacher(t *teacher.Teacher) {
	if t.AssignedProjects == nil {
		t.AssignedProjects = []string{}
	}
	if t.InchargeRequests == nil {
		t.InchargeRequests = ledger.Ledger{}
	}
}

func (repo *teacherRepository) get(ctx context.Context, filter bson.M) (teacher.Teacher, error) {
	var t teacher.Teacher
	if err := repo.db.findOne(ctx, teachersCollection, filter, &t, teacher.ErrNotFound); err != nil {
		return teacher.Teacher{}, err
	}
	normalizeTeacher(&t)
	return t, nil
}

func (repo *teacherRepository) Get(ctx context.Context, id string) (teacher.Teacher, error) {
	return repo.get(ctx, bson.M{"_id": id})
}

func (repo *teacherRepository) GetByEmail(ctx context.Context, email string) (teacher.Teacher, error) {
	return repo.get(ctx, bson.M{"email": email})
}

func (repo *teacherRepository) Save(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	normalizeTeacher(&t)
	if err := repo.db.replace(ctx, teachersCollection, t.ID, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return teacher.Teacher{}, teacher.ErrEmailExists
		}
		return teacher.Teacher{}, errors.Wrap(err, "saving teacher")
	}
	return t, nil
}

func (repo *teacherRepository) Query(ctx context.Context, filter teacher.Filter, page core.Page) ([]teacher.Teacher, int64, error) {
	teachers := make([]teacher.Teacher, 0)
	sort := bson.D{{Key: "username", Value: 1}, {Key: "email", Value: 1}}
	total, err := repo.db.find(ctx, teachersCollection, teacherFilter(filter), sort, page, &teachers)
	if err != nil {
		return nil, 0, err
	}
	for i := range teachers {
		normalizeTeacher(&teachers[i])
	}
	return teachers, total, nil
}

func teacherFilter(f teacher.Filter) bson.M {
	filter := bson.M{}
	if f.IDs != nil {
		filter["_id"] = idFilter(f.IDs, nil)
	}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"username": contains(f.Search)},
			bson.M{"email": contains(f.Search)},
		}
	}
	return filter
}
