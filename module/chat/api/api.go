package api

import (
	"chatline/module/chat/conv"
	"chatline/module/chat/files"
	"chatline/module/chat/group"
	"chatline/module/chat/msg"
	"chatline/module/chat/store"
	"chatline/module/chat/unread"
)

// Api bundles the chat services behind the HTTP handlers.
type Api struct {
	convs   *conv.Service
	groups  *group.Manager
	msgs    *msg.Service
	unread  *unread.Accountant
	blobs   files.BlobStore
	convTbl store.ConversationStore
}

func New(convs *conv.Service, groups *group.Manager, msgs *msg.Service, acct *unread.Accountant, blobs files.BlobStore, convTbl store.ConversationStore) *Api {
	return &Api{convs: convs, groups: groups, msgs: msgs, unread: acct, blobs: blobs, convTbl: convTbl}
}
