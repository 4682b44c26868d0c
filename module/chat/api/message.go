package api

import (
	"io"
	"path"
	"path/filepath"
	"strings"

	"chatline/module/chat/files"
	"chatline/module/chat/model"
	"chatline/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Multipart forms bypass gin's JSON binding, so the send form is
// validated explicitly.
var validate = validator.New()

type sendMessageForm struct {
	ConversationID string `validate:"required"`
	SenderID       string `validate:"required"`
}

// ListMessages returns a conversation's history oldest-first. With
// ?userId= it also marks the conversation read for that user before
// listing, so opening a chat clears its badge in one round trip.
func (a *Api) ListMessages(c *gin.Context) {
	out, err := a.msgs.List(c.Request.Context(), c.Param("conversationId"), c.Query("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

// SendMessage accepts multipart form data: conversationId, senderId,
// optional text, optional single file capped at 10MB with a MIME
// whitelist. The blob is stored before the message document so a
// durable message never references missing bytes.
func (a *Api) SendMessage(c *gin.Context) {
	form := sendMessageForm{
		ConversationID: c.PostForm("conversationId"),
		SenderID:       c.PostForm("senderId"),
	}
	if err := validate.Struct(form); err != nil {
		fail(c, errs.ErrValidation.WrapMsg("bad form", "err", err))
		return
	}
	conversationID, senderID := form.ConversationID, form.SenderID
	text := c.PostForm("text")

	var att *model.Attachment
	fh, err := c.FormFile("file")
	if err == nil && fh != nil {
		if fh.Size > files.MaxUploadSize {
			fail(c, errs.ErrValidation.WrapMsg("file too large", "size", fh.Size, "max", files.MaxUploadSize))
			return
		}
		mime := fh.Header.Get("Content-Type")
		if !files.MimeAllowed(mime) {
			fail(c, errs.ErrValidation.WrapMsg("unsupported file type", "mime", mime))
			return
		}

		src, err := fh.Open()
		if err != nil {
			fail(c, errs.ErrValidation.WrapMsg("unreadable upload", "err", err))
			return
		}
		defer src.Close()

		stored := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
		if err := a.blobs.Put(c.Request.Context(), stored, src, fh.Size, mime); err != nil {
			fail(c, err)
			return
		}
		att = &model.Attachment{
			FileName: filepath.Base(fh.Filename),
			FileURL:  stored,
			FileType: mime,
			FileSize: fh.Size,
		}
	}

	m, err := a.msgs.Send(c.Request.Context(), conversationID, senderID, text, att)
	if err != nil {
		if att != nil {
			_ = a.blobs.Delete(c.Request.Context(), att.FileURL)
		}
		fail(c, err)
		return
	}
	created(c, m)
}

// DownloadFile streams an attachment. Access is gated on conversation
// membership of ?userId= and on the file actually belonging to the
// message in the path.
func (a *Api) DownloadFile(c *gin.Context) {
	messageID := c.Param("messageId")
	fileName := path.Base(c.Param("fileName"))
	userID := c.Query("userId")
	if userID == "" {
		fail(c, errs.ErrValidation.WithDetail("userId is required"))
		return
	}

	m, err := a.msgs.Get(c.Request.Context(), messageID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	found := false
	for _, at := range m.Attachments {
		if strings.HasSuffix(at.FileURL, "/"+fileName) {
			found = true
			break
		}
	}
	if !found {
		fail(c, errs.ErrNotFound.WrapMsg("attachment", "message", messageID, "file", fileName))
		return
	}

	r, err := a.blobs.Get(c.Request.Context(), fileName)
	if err != nil {
		fail(c, err)
		return
	}
	defer r.Close()

	c.Header("Content-Type", files.ContentTypeFor(fileName))
	c.Status(200)
	_, _ = io.Copy(c.Writer, r)
}
