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

type MongoConversationStore struct {
	coll *mongo.Collection
}

func NewMongoConversationStore(db *mongo.Database) *MongoConversationStore {
	return &MongoConversationStore{coll: db.Collection(model.ConversationTableName)}
}

func (s *MongoConversationStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, model.ConversationIndexes())
	return errs.WrapMsg(err, "conversation indexes")
}

func (s *MongoConversationStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	var out model.Conversation
	err := s.coll.FindOne(ctx, bson.M{model.ConversationFieldID: id}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("conversation", "id", id)
	}
	if err != nil {
		return nil, errs.ErrDependency.WrapMsg("get conversation", "err", err)
	}
	return &out, nil
}

func (s *MongoConversationStore) FindDirect(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	filter := bson.M{
		model.ConversationFieldIsGroup:      false,
		model.ConversationFieldParticipants: bson.M{"$all": []string{userA, userB}},
	}
	var out model.Conversation
	err := s.coll.FindOne(ctx, filter).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("direct conversation", "users", userA+","+userB)
	}
	if err != nil {
		return nil, errs.ErrDependency.WrapMsg("find direct conversation", "err", err)
	}
	return &out, nil
}

func (s *MongoConversationStore) ListByParticipant(ctx context.Context, userID string) ([]*model.Conversation, error) {
	return s.list(ctx, bson.M{model.ConversationFieldParticipants: userID})
}

func (s *MongoConversationStore) ListGroupsByParticipant(ctx context.Context, userID string) ([]*model.Conversation, error) {
	return s.list(ctx, bson.M{
		model.ConversationFieldIsGroup:      true,
		model.ConversationFieldParticipants: userID,
	})
}

func (s *MongoConversationStore) list(ctx context.Context, filter bson.M) ([]*model.Conversation, error) {
	cur, err := s.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: model.ConversationFieldUpdatedAt, Value: -1}}))
	if err != nil {
		return nil, errs.ErrDependency.WrapMsg("list conversations", "err", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*model.Conversation
	for cur.Next(ctx) {
		var c model.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, errs.ErrDependency.WrapMsg("decode conversation", "err", err)
		}
		out = append(out, &c)
	}
	if err := cur.Err(); err != nil {
		return nil, errs.ErrDependency.WrapMsg("iterate conversations", "err", err)
	}
	return out, nil
}

func (s *MongoConversationStore) Create(ctx context.Context, c *model.Conversation) error {
	_, err := s.coll.InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return errs.ErrConflict.WrapMsg("conversation exists", "room", c.RoomName)
	}
	if err != nil {
		return errs.ErrDependency.WrapMsg("insert conversation", "err", err)
	}
	return nil
}

func (s *MongoConversationStore) SetParticipants(ctx context.Context, id string, participants []string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{model.ConversationFieldID: id},
		bson.M{"$set": bson.M{
			model.ConversationFieldParticipants: participants,
			model.ConversationFieldUpdatedAt:    time.Now(),
		}},
	)
	if err != nil {
		return errs.ErrDependency.WrapMsg("set participants", "err", err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("conversation", "id", id)
	}
	return nil
}

func (s *MongoConversationStore) SetLastSeen(ctx context.Context, id, userID string, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{model.ConversationFieldID: id},
		bson.M{"$set": bson.M{
			model.ConversationFieldLastSeenBy + "." + userID: at,
		}},
	)
	if err != nil {
		return errs.ErrDependency.WrapMsg("set last seen", "err", err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("conversation", "id", id)
	}
	return nil
}

func (s *MongoConversationStore) SetLastMessage(ctx context.Context, id, messageID string, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{model.ConversationFieldID: id},
		bson.M{"$set": bson.M{
			model.ConversationFieldLastMessageID: messageID,
			model.ConversationFieldUpdatedAt:     at,
		}},
	)
	if err != nil {
		return errs.ErrDependency.WrapMsg("set last message", "err", err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("conversation", "id", id)
	}
	return nil
}

func (s *MongoConversationStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{model.ConversationFieldID: id})
	if err != nil {
		return errs.ErrDependency.WrapMsg("delete conversation", "err", err)
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound.WrapMsg("conversation", "id", id)
	}
	return nil
}
