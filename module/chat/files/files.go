package files

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// BlobStore abstracts where attachment bytes live. The API layer only
// ever streams through it.
type BlobStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// MaxUploadSize caps a single attachment at 10MB.
const MaxUploadSize = 10 << 20

var allowedMimes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"video/mp4":  {},
	"video/mpeg": {},
	"audio/mpeg": {},
	"audio/wav":  {},
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// MimeAllowed reports whether the uploaded content type is accepted.
func MimeAllowed(mime string) bool {
	_, ok := allowedMimes[strings.ToLower(strings.TrimSpace(mime))]
	return ok
}

var extContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ContentTypeFor maps a stored file name to the download Content-Type.
func ContentTypeFor(name string) string {
	if ct, ok := extContentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
