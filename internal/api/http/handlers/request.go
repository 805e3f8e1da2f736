package handlers

import (
	"encoding/json"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/media"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

// requestFields holds raw input fields keyed by name. A nil value is an
// explicit JSON null; a missing key means the field was not sent.
type requestFields map[string]*string

// readFields collects the request's scalar fields and uploaded files from a
// multipart form or a JSON object.
func readFields(c *fiber.Ctx) (requestFields, *multipart.Form, error) {
	fields := requestFields{}
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, nil, apperrors.NewValidationError("invalid multipart form", nil)
		}
		for key, values := range form.Value {
			if len(values) == 0 {
				continue
			}
			v := values[0]
			fields[key] = &v
		}
		return fields, form, nil
	}

	if len(c.Body()) == 0 {
		return fields, nil, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return nil, nil, apperrors.NewValidationError("invalid payload", nil)
	}
	for key, value := range raw {
		if string(value) == "null" {
			fields[key] = nil
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, nil, apperrors.NewValidationError("field must be a string", map[string]any{"field": key})
		}
		fields[key] = &s
	}
	return fields, nil, nil
}

func (f requestFields) text(name string) domain.Patch[string] {
	v, ok := f[name]
	switch {
	case !ok:
		return domain.Patch[string]{}
	case v == nil:
		return domain.Null[string]()
	default:
		return domain.Set(*v)
	}
}

func typedPatch[T ~string](f requestFields, name string) domain.Patch[T] {
	v, ok := f[name]
	switch {
	case !ok:
		return domain.Patch[T]{}
	case v == nil:
		return domain.Null[T]()
	default:
		return domain.Set(T(strings.TrimSpace(*v)))
	}
}

// openUploads opens the files under field. The returned func closes them.
func openUploads(form *multipart.Form, field string) ([]media.Upload, func(), error) {
	noop := func() {}
	if form == nil || len(form.File[field]) == 0 {
		return nil, noop, nil
	}
	headers := form.File[field]
	uploads := make([]media.Upload, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	for _, fh := range headers {
		file, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, noop, apperrors.NewValidationError("unable to read upload", map[string]any{"file": fh.Filename})
		}
		files = append(files, file)
		uploads = append(uploads, media.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Body:        file,
		})
	}
	return uploads, closeAll, nil
}

func (f requestFields) value(name string) string {
	if v, ok := f[name]; ok && v != nil {
		return *v
	}
	return ""
}
