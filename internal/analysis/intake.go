package analysis

import (
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/myrjola/skinwise/internal/blobstore"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/payload"
	"github.com/myrjola/skinwise/internal/submission"
	"github.com/myrjola/skinwise/internal/wizard"
)

// MaxFieldBytes bounds a single text part of the multipart body.
const MaxFieldBytes = 16 << 10

// Submission is the decoded multipart body of an analysis request.
type Submission struct {
	Fields map[string]string
	Images []blobstore.Blob
}

// ReadMultipart streams the multipart body of r. Image parts are written to scope, at most maxImageBytes each.
//
// A body that is not multipart, has oversized text parts or more than the required number of images fails with
// ErrValidation. Errors of the underlying body reader such as [http.MaxBytesError] are passed through wrapped.
func ReadMultipart(r *http.Request, scope *blobstore.Scope, maxImageBytes int64) (Submission, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return Submission{}, errors.Wrap(ErrValidation, "multipart reader", slog.String("reason", err.Error()))
	}

	sub := Submission{Fields: make(map[string]string), Images: nil}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				return Submission{}, errors.Wrap(err, "next part")
			}
			return Submission{}, errors.Wrap(ErrValidation, "next part", slog.String("reason", err.Error()))
		}

		name := part.FormName()
		if name == payload.ImagesField {
			if len(sub.Images) == submission.RequiredImages {
				return Submission{}, errors.Wrap(ErrValidation, "too many images")
			}
			var blob blobstore.Blob
			blob, err = scope.Put(part.FileName(), part.Header.Get("Content-Type"), part, maxImageBytes)
			if err != nil {
				return Submission{}, errors.Wrap(err, "store image", slog.String("filename", part.FileName()))
			}
			sub.Images = append(sub.Images, blob)
			continue
		}

		var value []byte
		if value, err = io.ReadAll(io.LimitReader(part, MaxFieldBytes+1)); err != nil {
			return Submission{}, errors.Wrap(err, "read field", slog.String("field", name))
		}
		if len(value) > MaxFieldBytes {
			return Submission{}, errors.Wrap(ErrValidation, "field too long", slog.String("field", name))
		}
		sub.Fields[name] = string(value)
	}
	return sub, nil
}

type imageIntake struct {
	ContentType string `json:"contentType" validate:"startswith=image/"`
	Size        int64  `json:"size"        validate:"gt=0"`
}

type intake struct {
	Gender          string            `json:"gender"          validate:"omitempty,oneof=male female"`
	Concerns        string            `json:"concerns"        validate:"omitempty,json"`
	SubmittedAt     string            `json:"submittedAt"     validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	ClientSessionID string            `json:"clientSessionId" validate:"omitempty,uuid"`
	Fields          map[string]string `json:"fields"          validate:"dive,keys,min=1,max=64,endkeys,max=4000"`
	Images          []imageIntake     `json:"images"          validate:"len=3,dive"`
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// validate checks the submission shape. The returned error wraps ErrValidation and names the offending fields.
func (s *Service) validate(sub Submission) error {
	in := intake{
		Gender:          sub.Fields[string(wizard.KeyGender)],
		Concerns:        sub.Fields[string(wizard.KeyConcerns)],
		SubmittedAt:     sub.Fields[payload.SubmittedAtField],
		ClientSessionID: sub.Fields[payload.ClientSessionIDField],
		Fields:          sub.Fields,
		Images:          make([]imageIntake, 0, len(sub.Images)),
	}
	for _, img := range sub.Images {
		in.Images = append(in.Images, imageIntake{ContentType: img.ContentType, Size: img.Size})
	}

	err := s.validator.Struct(in)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errors.Wrap(err, "validate submission")
	}
	problems := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		problems = append(problems, e.Namespace()+" failed "+e.Tag())
	}
	return errors.Wrap(ErrValidation, strings.Join(problems, "; "))
}
