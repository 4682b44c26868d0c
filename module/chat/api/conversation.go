package api

import (
	"chatline/logger"
	"chatline/module/chat/model"
	"chatline/tools/errs"

	"github.com/gin-gonic/gin"
)

// CreateConversation gets or creates the 1:1 conversation between two
// users. Existing conversations come back 200, fresh ones 201.
func (a *Api) CreateConversation(c *gin.Context) {
	var req createConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrValidation.WrapMsg("bad body", "err", err))
		return
	}
	before, err := a.convs.Find(c.Request.Context(), req.UserID1, req.UserID2)
	if err == nil {
		ok(c, viewOf(before, 0))
		return
	}
	out, err := a.convs.GetOrCreate(c.Request.Context(), req.UserID1, req.UserID2)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, viewOf(out, 0))
}

// FindConversation looks up a 1:1 conversation without creating it.
func (a *Api) FindConversation(c *gin.Context) {
	out, err := a.convs.Find(c.Request.Context(), c.Param("userId1"), c.Param("userId2"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, viewOf(out, 0))
}

// GetConversation returns one conversation; with ?userId= it includes
// that user's unread count.
func (a *Api) GetConversation(c *gin.Context) {
	id := c.Param("conversationId")
	out, err := a.convTbl.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	var n int64
	if userID := c.Query("userId"); userID != "" {
		n, err = a.unread.Count(c.Request.Context(), id, userID)
		if err != nil {
			logger.Warnf("[api] unread count conv=%s user=%s: %v", id, userID, err)
			n = 0
		}
	}
	ok(c, viewOf(out, n))
}

// ListConversations returns every conversation the user participates
// in, most recently active first, each with a best-effort unread count.
func (a *Api) ListConversations(c *gin.Context) {
	userID := c.Param("userId")
	convs, err := a.convTbl.ListByParticipant(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, a.withUnread(c, convs, userID))
}

// ListGroups is ListConversations restricted to groups.
func (a *Api) ListGroups(c *gin.Context) {
	userID := c.Param("userId")
	convs, err := a.convTbl.ListGroupsByParticipant(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, a.withUnread(c, convs, userID))
}

func (a *Api) withUnread(c *gin.Context, convs []*model.Conversation, userID string) []conversationView {
	views := make([]conversationView, 0, len(convs))
	for _, cv := range convs {
		n, err := a.unread.Count(c.Request.Context(), cv.ID, userID)
		if err != nil {
			logger.Warnf("[api] unread count conv=%s user=%s: %v", cv.ID, userID, err)
			n = 0
		}
		views = append(views, viewOf(cv, n))
	}
	return views
}

// MarkRead stamps the caller's watermark for the conversation.
func (a *Api) MarkRead(c *gin.Context) {
	var req markReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrValidation.WrapMsg("bad body", "err", err))
		return
	}
	id := c.Param("conversationId")
	if err := a.unread.MarkRead(c.Request.Context(), id, req.UserID); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"conversationId": id, "userId": req.UserID})
}

// TotalUnread folds unread counts over all the user's conversations.
// Conversations that fail to count contribute zero and are listed.
func (a *Api) TotalUnread(c *gin.Context) {
	userID := c.Param("userId")
	total, failures, err := a.unread.Total(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	resp := totalUnreadResp{UserID: userID, TotalUnread: total, Partial: len(failures) > 0}
	for _, f := range failures {
		resp.Failed = append(resp.Failed, f.ConversationID)
	}
	ok(c, resp)
}
