package api

import (
	mid "chatline/middleware"

	"github.com/gin-gonic/gin"
)

// Register mounts the REST surface under /api. Auth is opt-in per route
// via the middleware wrappers; with an empty configured secret every
// route stays open, which is the development default.
func Register(r *gin.Engine, a *Api, authed bool) {
	r.GET("/health", Health)

	g := r.Group("/api")
	opt := mid.RouteOpt{IsAuth: authed}

	mid.POST(g, "/conversation", a.CreateConversation, opt)
	mid.GET(g, "/conversation/find/:userId1/:userId2", a.FindConversation, opt)
	mid.GET(g, "/conversation/:conversationId", a.GetConversation, opt)
	mid.POST(g, "/conversation/:conversationId/read", a.MarkRead, opt)

	mid.GET(g, "/:userId/conversations", a.ListConversations, opt)
	mid.GET(g, "/:userId/groups", a.ListGroups, opt)
	mid.GET(g, "/unread/:userId", a.TotalUnread, opt)

	mid.POST(g, "/group", a.CreateGroup, opt)
	mid.POST(g, "/group/add", a.AddParticipant, opt)
	mid.POST(g, "/group/remove", a.RemoveParticipant, opt)
	mid.DELETE(g, "/group/:conversationId", a.DeleteGroup, opt)

	mid.GET(g, "/messages/:conversationId", a.ListMessages, opt)
	mid.POST(g, "/messages", a.SendMessage, opt)
	mid.GET(g, "/messages/file/:messageId/:fileName", a.DownloadFile, opt)
}
