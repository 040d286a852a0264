package services

import (
	"context"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"apollo/backend/utils"

	"github.com/google/uuid"
)

var allowedUploadTypes = map[string][]string{
	"image":    {"image/jpeg", "image/png", "image/webp", "image/gif"},
	"video":    {"video/mp4", "video/webm", "video/quicktime"},
	"document": {"application/pdf", "application/zip", "text/plain"},
}

// UploadService accepts media for courses. Files are opaque: only the declared
// content type and the size are checked.
type UploadService struct {
	Storage  Storage
	MaxBytes int64
	Now      func() time.Time
}

func NewUploadService(storage Storage, maxMB int) *UploadService {
	if maxMB <= 0 {
		maxMB = 200
	}
	return &UploadService{
		Storage:  storage,
		MaxBytes: int64(maxMB) << 20,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

type UploadResult struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func (s *UploadService) Upload(ctx context.Context, p utils.Principal, kind string, fh *multipart.FileHeader) (*UploadResult, error) {
	if !p.IsInstructor() && !p.IsAdmin() {
		return nil, utils.NewAuthorizationError("Only instructors can upload media")
	}
	allowed, ok := allowedUploadTypes[kind]
	if !ok {
		return nil, utils.NewValidationError("kind must be one of image, video, document")
	}
	if fh == nil || fh.Size == 0 {
		return nil, utils.NewValidationError("file is required")
	}
	if fh.Size > s.MaxBytes {
		return nil, utils.NewValidationError("file exceeds %d MB", s.MaxBytes>>20)
	}

	contentType, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil || !contains(allowed, contentType) {
		return nil, utils.NewValidationError("content type %q is not allowed for %s", fh.Header.Get("Content-Type"), kind)
	}

	key := objectKey(kind, fh.Filename, s.Now())
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	url, err := s.Storage.Put(ctx, key, f, contentType)
	if err != nil {
		return nil, err
	}
	return &UploadResult{URL: url, Key: key, ContentType: contentType, Size: fh.Size}, nil
}

func objectKey(kind, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 || strings.Trim(ext, ".abcdefghijklmnopqrstuvwxyz0123456789") != "" {
		ext = ""
	}
	return kind + "/" + now.Format("2006/01") + "/" + uuid.NewString() + ext
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
