package store

import (
	"context"
	"time"

	"chatline/module/chat/model"
	"chatline/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoMessageStore struct {
	coll *mongo.Collection
}

func NewMongoMessageStore(db *mongo.Database) *MongoMessageStore {
	return &MongoMessageStore{coll: db.Collection(model.MessageTableName)}
}

func (s *MongoMessageStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, model.MessageIndexes())
	return errs.WrapMsg(err, "message indexes")
}

func (s *MongoMessageStore) Get(ctx context.Context, id string) (*model.Message, error) {
	var out model.Message
	err := s.coll.FindOne(ctx, bson.M{model.MessageFieldID: id}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("message", "id", id)
	}
	if err != nil {
		return nil, errs.ErrDependency.WrapMsg("get message", "err", err)
	}
	return &out, nil
}

func (s *MongoMessageStore) ListByConversation(ctx context.Context, conversationID string) ([]*model.Message, error) {
	cur, err := s.coll.Find(ctx,
		bson.M{model.MessageFieldConversationID: conversationID},
		options.Find().SetSort(bson.D{{Key: model.MessageFieldCreatedAt, Value: 1}}),
	)
	if err != nil {
		return nil, errs.ErrDependency.WrapMsg("list messages", "err", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*model.Message
	for cur.Next(ctx) {
		var m model.Message
		if err := cur.Decode(&m); err != nil {
			return nil, errs.ErrDependency.WrapMsg("decode message", "err", err)
		}
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, errs.ErrDependency.WrapMsg("iterate messages", "err", err)
	}
	return out, nil
}

func (s *MongoMessageStore) Insert(ctx context.Context, m *model.Message) error {
	_, err := s.coll.InsertOne(ctx, m)
	if mongo.IsDuplicateKeyError(err) {
		return errs.ErrConflict.WrapMsg("message exists", "id", m.ID)
	}
	if err != nil {
		return errs.ErrDependency.WrapMsg("insert message", "err", err)
	}
	return nil
}

func (s *MongoMessageStore) CountUnread(ctx context.Context, conversationID, userID string, after time.Time) (int64, error) {
	filter := bson.M{
		model.MessageFieldConversationID: conversationID,
		model.MessageFieldSenderID:       bson.M{"$ne": userID},
		model.MessageFieldStatus:         bson.M{"$ne": model.StatusRead},
	}
	if !after.IsZero() {
		filter[model.MessageFieldCreatedAt] = bson.M{"$gt": after}
	}
	n, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, errs.ErrDependency.WrapMsg("count unread", "err", err)
	}
	return n, nil
}

func (s *MongoMessageStore) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{
			model.MessageFieldConversationID: conversationID,
			model.MessageFieldSenderID:       bson.M{"$ne": readerID},
			model.MessageFieldStatus:         bson.M{"$in": []string{model.StatusSent, model.StatusDelivered}},
		},
		bson.M{"$set": bson.M{model.MessageFieldStatus: model.StatusRead}},
	)
	if err != nil {
		return 0, errs.ErrDependency.WrapMsg("mark read", "err", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoMessageStore) DeleteByConversation(ctx context.Context, conversationID string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{model.MessageFieldConversationID: conversationID})
	if err != nil {
		return 0, errs.ErrDependency.WrapMsg("delete messages", "err", err)
	}
	return res.DeletedCount, nil
}
