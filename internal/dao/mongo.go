package dao

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/internal/consts"
	"github.com/grand-thief-cash/voltify/internal/model"
)

// MongoProvider mongodb 组件
type MongoProvider interface {
	Database() *mongo.Database
}

// ownedFilter owner 与 id 同时作为匹配条件
func ownedFilter(owner, id string) bson.M {
	return bson.M{"_id": id, "owner": owner}
}

func listFilter(owner string, filter *model.TaskFilter) bson.M {
	f := bson.M{"owner": owner}
	if filter != nil && filter.Completed != nil {
		f["completed"] = *filter.Completed
	}
	return f
}

type MongoTaskDao struct {
	*core.BaseComponent
	Mongo MongoProvider `infra:"dep:mongodb"`

	collection string
	coll       *mongo.Collection
}

func NewMongoTaskDao(collection string) *MongoTaskDao {
	return &MongoTaskDao{
		BaseComponent: core.NewBaseComponent(consts.COMP_DAO_TASK),
		collection:    collection,
	}
}

func (d *MongoTaskDao) Start(ctx context.Context) error {
	if d.Mongo == nil || d.Mongo.Database() == nil {
		return fmt.Errorf("task_dao: mongodb not available")
	}
	d.coll = d.Mongo.Database().Collection(d.collection)
	_, err := d.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "priority", Value: -1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "completed", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("task_dao: create indexes: %w", err)
	}
	return d.BaseComponent.Start(ctx)
}

func (d *MongoTaskDao) Find(ctx context.Context, owner string, filter *model.TaskFilter) ([]*model.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "created_at", Value: -1}})
	cur, err := d.coll.Find(ctx, listFilter(owner, filter), opts)
	if err != nil {
		return nil, err
	}
	var list []*model.Task
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *MongoTaskDao) FindOne(ctx context.Context, owner, id string) (*model.Task, error) {
	var t model.Task
	if err := d.coll.FindOne(ctx, ownedFilter(owner, id)).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (d *MongoTaskDao) Insert(ctx context.Context, t *model.Task) error {
	if _, err := d.coll.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (d *MongoTaskDao) UpdateOne(ctx context.Context, owner, id string, patch *model.TaskPatch) (UpdateResult, error) {
	cols := patch.Columns()
	if len(cols) == 0 {
		n, err := d.coll.CountDocuments(ctx, ownedFilter(owner, id))
		return UpdateResult{Matched: n > 0}, err
	}
	r, err := d.coll.UpdateOne(ctx, ownedFilter(owner, id), bson.M{"$set": cols})
	if err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Matched: r.MatchedCount > 0, Modified: r.ModifiedCount > 0}, nil
}

func (d *MongoTaskDao) DeleteOne(ctx context.Context, owner, id string) (bool, error) {
	r, err := d.coll.DeleteOne(ctx, ownedFilter(owner, id))
	if err != nil {
		return false, err
	}
	return r.DeletedCount > 0, nil
}

func (d *MongoTaskDao) ListOpen(ctx context.Context) ([]*model.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := d.coll.Find(ctx, bson.M{"completed": false}, opts)
	if err != nil {
		return nil, err
	}
	var list []*model.Task
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// MongoUserDao username 直接作为 _id, 唯一性由主键保证
type MongoUserDao struct {
	*core.BaseComponent
	Mongo MongoProvider `infra:"dep:mongodb"`

	collection string
	coll       *mongo.Collection
}

func NewMongoUserDao(collection string) *MongoUserDao {
	return &MongoUserDao{
		BaseComponent: core.NewBaseComponent(consts.COMP_DAO_USER),
		collection:    collection,
	}
}

func (d *MongoUserDao) Start(ctx context.Context) error {
	if d.Mongo == nil || d.Mongo.Database() == nil {
		return fmt.Errorf("user_dao: mongodb not available")
	}
	d.coll = d.Mongo.Database().Collection(d.collection)
	return d.BaseComponent.Start(ctx)
}

func (d *MongoUserDao) Create(ctx context.Context, u *model.User) error {
	if _, err := d.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (d *MongoUserDao) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := d.coll.FindOne(ctx, bson.M{"_id": username}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
