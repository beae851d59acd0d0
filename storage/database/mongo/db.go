// Package mongodb stores students, teachers and projects as MongoDB documents, one collection each.
package mongodb

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/projex/core"
)

const (
	studentsCollection = "students"
	teachersCollection = "teachers"
	projectsCollection = "projects"
)

type DB struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// Open connects to conf.Database.URI and waits for the server to answer.
func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	db := &DB{client: client, db: client.Database(conf.Database.Name), timeout: conf.Database.Timeout}
	if db.timeout <= 0 {
		db.timeout = 10 * time.Second
	}

	pingCtx, cancel := db.opCtx(ctx)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "pinging mongo")
	}
	return db, nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and lookup indexes of every collection.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		studentsCollection: {
			{Keys: bson.D{{Key: "rollNo", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "project", Value: 1}}},
		},
		teachersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		projectsCollection: {
			{Keys: bson.D{{Key: "incharge", Value: 1}}},
			{Keys: bson.D{{Key: "students", Value: 1}}},
			{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
		},
	}

	ctx, cancel := db.opCtx(ctx)
	defer cancel()
	for name, models := range indexes {
		if _, err := db.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", name)
		}
	}
	return nil
}

// opCtx bounds a single database operation.
func (db *DB) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.timeout)
}

func (db *DB) collection(name string) *mongo.Collection {
	return db.db.Collection(name)
}

// checkConn turns a lost client into a shutdown error so the API stops serving.
func checkConn(err error) error {
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return core.NewShutdownError("database connection lost")
	}
	return err
}

// findOne decodes the first document matching filter into out; notFound is returned when there is none.
func (db *DB) findOne(ctx context.Context, coll string, filter bson.M, out interface{}, notFound error) error {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	err := db.collection(coll).FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return errors.Wrapf(checkConn(err), "finding %s", coll)
}

// replace upserts doc by id.
func (db *DB) replace(ctx context.Context, coll, id string, doc interface{}) error {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	_, err := db.collection(coll).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return checkConn(err)
}

// find decodes one page of the documents matching filter into out and returns the total count.
func (db *DB) find(ctx context.Context, coll string, filter bson.M, sort bson.D, page core.Page, out interface{}) (int64, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	total, err := db.collection(coll).CountDocuments(ctx, filter)
	if err != nil {
		return 0, errors.Wrapf(checkConn(err), "counting %s", coll)
	}

	opts := options.Find().SetSort(sort)
	if page.Limit > 0 {
		opts.SetSkip(int64(page.Skip())).SetLimit(int64(page.Limit))
	}
	cursor, err := db.collection(coll).Find(ctx, filter, opts)
	if err != nil {
		return 0, errors.Wrapf(checkConn(err), "querying %s", coll)
	}
	if err := cursor.All(ctx, out); err != nil {
		return 0, errors.Wrapf(err, "decoding %s", coll)
	}
	return total, nil
}

// contains matches s anywhere in a field, ignoring case.
func contains(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// equalFold matches a whole field, ignoring case.
func equalFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

func idFilter(ids []string, exclude []string) bson.M {
	cond := bson.M{}
	if ids != nil {
		cond["$in"] = ids
	}
	if len(exclude) > 0 {
		cond["$nin"] = exclude
	}
	return cond
}
