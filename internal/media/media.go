package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// sniffLen matches mimetype's default read limit.
const sniffLen = 3072

// ErrUnsupportedType is returned for uploads that are not images.
var ErrUnsupportedType = errors.New("only image uploads are accepted")

// Upload is one raw file handed to the media provider.
type Upload struct {
	Folder      string
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Provider hosts images and deletes them by handle.
type Provider interface {
	Upload(ctx context.Context, upload Upload) (domain.Image, error)
	Delete(ctx context.Context, handle string) error
}

// DetectContentType resolves the upload's content type from the declared
// header or the file extension.
func DetectContentType(name, declared string) string {
	if ct := strings.TrimSpace(declared); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Sniff detects the upload's content type from its leading bytes and puts
// those bytes back in front of Body. The declared header is ignored.
func Sniff(upload *Upload) (string, error) {
	if upload.Body == nil {
		return "", errors.New("upload has no body")
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(upload.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	head = head[:n]
	upload.Body = io.MultiReader(bytes.NewReader(head), upload.Body)
	return mimetype.Detect(head).String(), nil
}

// IsImage reports whether the content type is an image type.
func IsImage(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}
