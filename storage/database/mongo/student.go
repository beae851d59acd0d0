package mongodb

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/ledger"
	"github.com/trezcool/projex/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

// normalize replaces nil lists with empty ones, as missing arrays decode to nil.
func normalizeStudent(s *student.Student) {
	if s.Partners == nil {
		s.Partners = []string{}
	}
	if s.PartnerRequests == nil {
		s.PartnerRequests = ledger.Ledger{}
	}
	if s.InchargeRequests == nil {
		s.InchargeRequests = ledger.Ledger{}
	}
}

func (repo *studentRepository) get(ctx context.Context, filter bson.M) (student.Student, error) {
	var s student.Student
	if err := repo.db.findOne(ctx, studentsCollection, filter, &s, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	normalizeStudent(&s)
	return s, nil
}

func (repo *studentRepository) Get(ctx context.Context, id string) (student.Student, error) {
	return repo.get(ctx, bson.M{"_id": id})
}

func (repo *studentRepository) GetByRollNo(ctx context.Context, rollNo string) (student.Student, error) {
	return repo.get(ctx, bson.M{"rollNo": rollNo})
}

func (repo *studentRepository) Save(ctx context.Context, s student.Student) (student.Student, error) {
	normalizeStudent(&s)
	if err := repo.db.replace(ctx, studentsCollection, s.ID, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return student.Student{}, student.ErrRollNoExists
		}
		return student.Student{}, errors.Wrap(err, "saving student")
	}
	return s, nil
}

func (repo *studentRepository) Query(ctx context.Context, filter student.Filter, page core.Page) ([]student.Student, int64, error) {
	students := make([]student.Student, 0)
	total, err := repo.db.find(ctx, studentsCollection, studentFilter(filter), bson.D{{Key: "rollNo", Value: 1}}, page, &students)
	if err != nil {
		return nil, 0, err
	}
	for i := range students {
		normalizeStudent(&students[i])
	}
	return students, total, nil
}

func studentFilter(f student.Filter) bson.M {
	filter := bson.M{}
	if f.IDs != nil || len(f.Exclude) > 0 {
		filter["_id"] = idFilter(f.IDs, f.Exclude)
	}
	if f.Available {
		// at most MaxPartners-1 partners
		filter[fmt.Sprintf("partners.%d", student.MaxPartners-1)] = bson.M{"$exists": false}
	}
	if f.Department != "" {
		filter["department"] = equalFold(f.Department)
	}
	if f.HasProject != nil {
		op := "$in"
		if *f.HasProject {
			op = "$nin"
		}
		filter["project"] = bson.M{op: bson.A{nil, ""}}
	}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"rollNo": contains(f.Search)},
			bson.M{"username": contains(f.Search)},
		}
	}
	return filter
}
