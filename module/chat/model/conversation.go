package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ConversationTableName = "conversation"

// Field names, kept as constants so filters and updates never drift
// from the bson tags.
const (
	ConversationFieldID            = "_id"
	ConversationFieldParticipants  = "participants"
	ConversationFieldRoomName      = "room_name"
	ConversationFieldIsGroup       = "is_group"
	ConversationFieldGroupName     = "group_name"
	ConversationFieldGroupAdmin    = "group_admin"
	ConversationFieldLastMessageID = "last_message_id"
	ConversationFieldLastSeenBy    = "last_seen_by"
	ConversationFieldCreatedAt     = "created_at"
	ConversationFieldUpdatedAt     = "updated_at"
)

// Conversation is one direct (two participants) or group chat. RoomName
// is the addressable fan-out channel; it is unique and never changes
// for the life of the conversation.
type Conversation struct {
	ID            string               `bson:"_id"`
	Participants  []string             `bson:"participants"`
	RoomName      string               `bson:"room_name"`
	IsGroup       bool                 `bson:"is_group"`
	GroupName     string               `bson:"group_name,omitempty"`
	GroupAdmin    string               `bson:"group_admin,omitempty"`
	LastMessageID string               `bson:"last_message_id,omitempty"`
	LastSeenBy    map[string]time.Time `bson:"last_seen_by,omitempty"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

func (*Conversation) TableName() string { return ConversationTableName }

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// LastSeen returns the user's read watermark; ok is false when the user
// has never marked the conversation read.
func (c *Conversation) LastSeen(userID string) (time.Time, bool) {
	if c.LastSeenBy == nil {
		return time.Time{}, false
	}
	t, ok := c.LastSeenBy[userID]
	return t, ok
}

func ConversationIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: ConversationFieldRoomName, Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: ConversationFieldParticipants, Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: ConversationFieldIsGroup, Value: 1},
				{Key: ConversationFieldParticipants, Value: 1},
			},
		},
	}
}
