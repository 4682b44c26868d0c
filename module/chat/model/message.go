package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const MessageTableName = "message"

const (
	MessageFieldID             = "_id"
	MessageFieldConversationID = "conversation_id"
	MessageFieldSenderID       = "sender_id"
	MessageFieldText           = "text"
	MessageFieldType           = "message_type"
	MessageFieldAttachments    = "attachments"
	MessageFieldStatus         = "status"
	MessageFieldCreatedAt      = "created_at"
)

// Delivery status values; monotonic, a message never regresses.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Message content kinds, derived from the attachment MIME type.
const (
	TypeText  = "text"
	TypeImage = "image"
	TypeVideo = "video"
	TypeAudio = "audio"
	TypeFile  = "file"
)

type Attachment struct {
	FileName string `bson:"file_name" json:"fileName"`
	FileURL  string `bson:"file_url" json:"fileUrl"`
	FileType string `bson:"file_type" json:"fileType"`
	FileSize int64  `bson:"file_size" json:"fileSize"`
}

// Message is immutable once written except for Status.
type Message struct {
	ID             string       `bson:"_id" json:"id"`
	ConversationID string       `bson:"conversation_id" json:"conversationId"`
	SenderID       string       `bson:"sender_id" json:"senderId"`
	Text           string       `bson:"text" json:"text"`
	MessageType    string       `bson:"message_type" json:"messageType"`
	Attachments    []Attachment `bson:"attachments,omitempty" json:"attachments,omitempty"`
	Status         string       `bson:"status" json:"status"`
	CreatedAt      time.Time    `bson:"created_at" json:"createdAt"`
}

func (*Message) TableName() string { return MessageTableName }

// TypeForMime maps an attachment MIME type onto the message kind.
func TypeForMime(mime string) string {
	switch {
	case mime == "":
		return TypeText
	case strings.HasPrefix(mime, "image/"):
		return TypeImage
	case strings.HasPrefix(mime, "video/"):
		return TypeVideo
	case strings.HasPrefix(mime, "audio/"):
		return TypeAudio
	default:
		return TypeFile
	}
}

func MessageIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: MessageFieldConversationID, Value: 1},
				{Key: MessageFieldCreatedAt, Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: MessageFieldConversationID, Value: 1},
				{Key: MessageFieldSenderID, Value: 1},
				{Key: MessageFieldStatus, Value: 1},
			},
		},
	}
}
