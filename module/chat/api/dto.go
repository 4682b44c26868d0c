package api

import (
	"time"

	"chatline/module/chat/model"
)

type createConversationReq struct {
	UserID1 string `json:"userId1" binding:"required"`
	UserID2 string `json:"userId2" binding:"required"`
}

type createGroupReq struct {
	Name         string   `json:"name" binding:"required"`
	Participants []string `json:"participants" binding:"required,min=2"`
	Admin        string   `json:"admin" binding:"required"`
}

type groupMemberReq struct {
	ConversationID string `json:"conversationId" binding:"required"`
	UserID         string `json:"userId" binding:"required"`
}

type markReadReq struct {
	UserID string `json:"userId" binding:"required"`
}

// conversationView is a conversation plus the requesting user's unread
// count, the shape list endpoints return.
type conversationView struct {
	ID            string    `json:"id"`
	Participants  []string  `json:"participants"`
	RoomName      string    `json:"roomName"`
	IsGroup       bool      `json:"isGroup"`
	GroupName     string    `json:"groupName,omitempty"`
	GroupAdmin    string    `json:"groupAdmin,omitempty"`
	LastMessageID string    `json:"lastMessageId,omitempty"`
	UnreadCount   int64     `json:"unreadCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func viewOf(conv *model.Conversation, unreadCount int64) conversationView {
	return conversationView{
		ID:            conv.ID,
		Participants:  conv.Participants,
		RoomName:      conv.RoomName,
		IsGroup:       conv.IsGroup,
		GroupName:     conv.GroupName,
		GroupAdmin:    conv.GroupAdmin,
		LastMessageID: conv.LastMessageID,
		UnreadCount:   unreadCount,
		CreatedAt:     conv.CreatedAt,
		UpdatedAt:     conv.UpdatedAt,
	}
}

type totalUnreadResp struct {
	UserID      string   `json:"userId"`
	TotalUnread int64    `json:"totalUnread"`
	Partial     bool     `json:"partial"`
	Failed      []string `json:"failedConversations,omitempty"`
}
