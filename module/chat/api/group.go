package api

import (
	"chatline/tools/errs"

	"github.com/gin-gonic/gin"
)

func (a *Api) CreateGroup(c *gin.Context) {
	var req createGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrValidation.WrapMsg("bad body", "err", err))
		return
	}
	out, err := a.groups.CreateGroup(c.Request.Context(), req.Name, req.Participants, req.Admin)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, viewOf(out, 0))
}

func (a *Api) AddParticipant(c *gin.Context) {
	var req groupMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrValidation.WrapMsg("bad body", "err", err))
		return
	}
	out, err := a.groups.AddParticipant(c.Request.Context(), req.ConversationID, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, viewOf(out, 0))
}

func (a *Api) RemoveParticipant(c *gin.Context) {
	var req groupMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrValidation.WrapMsg("bad body", "err", err))
		return
	}
	out, err := a.groups.RemoveParticipant(c.Request.Context(), req.ConversationID, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, viewOf(out, 0))
}

func (a *Api) DeleteGroup(c *gin.Context) {
	id := c.Param("conversationId")
	if err := a.groups.DeleteGroup(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"conversationId": id, "deleted": true})
}
