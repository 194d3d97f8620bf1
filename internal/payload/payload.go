// Package payload turns wizard answers and images into the multipart submission body.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/imageinput"
	"github.com/myrjola/skinwise/internal/wizard"
)

// Field names that are not answer keys.
const (
	ImagesField          = "images"
	SubmittedAtField     = "submittedAt"
	ClientSessionIDField = "clientSessionId"
)

// Field is a single text part of the payload.
type Field struct {
	Name  string
	Value string
}

// Payload is the assembled submission: coerced text fields followed by the image parts.
type Payload struct {
	Fields []Field
	Images []imageinput.Image
}

// Metadata is attached to every submission.
type Metadata struct {
	SubmittedAt     time.Time
	ClientSessionID string
}

// NewMetadata stamps a submission made at now with a fresh client session id.
func NewMetadata(now time.Time) Metadata {
	return Metadata{SubmittedAt: now, ClientSessionID: uuid.NewString()}
}

// Assemble builds the payload from answers and the normalized images.
//
// Flags of the gender that does not apply are nulled before coercion, both sets when the gender is unset. Nil images
// are skipped. The submission metadata is always added.
func Assemble(answers wizard.Answers, images []*imageinput.Image, meta Metadata) Payload {
	answers = nullInactiveGender(answers.Clone())

	var p Payload
	for _, f := range wizard.Fields() {
		if f.Kind == wizard.KindImage {
			continue
		}
		value, _ := answers.Value(f.Key)
		if s, send := coerce(value); send {
			p.Fields = append(p.Fields, Field{Name: string(f.Key), Value: s})
		}
	}
	p.Fields = append(p.Fields,
		Field{Name: SubmittedAtField, Value: meta.SubmittedAt.UTC().Format(time.RFC3339)},
		Field{Name: ClientSessionIDField, Value: meta.ClientSessionID},
	)
	for _, image := range images {
		if image != nil {
			p.Images = append(p.Images, *image)
		}
	}
	return p
}

func nullInactiveGender(a wizard.Answers) wizard.Answers {
	var inactive [][]**bool
	switch a.Gender {
	case wizard.GenderMale:
		inactive = [][]**bool{a.FemaleFlags()}
	case wizard.GenderFemale:
		inactive = [][]**bool{a.MaleFlags()}
	case wizard.GenderUnset:
		inactive = [][]**bool{a.MaleFlags(), a.FemaleFlags()}
	}
	for _, flags := range inactive {
		for _, flag := range flags {
			*flag = nil
		}
	}
	return a
}

// coerce renders an answer value as a form value. The second return is false when the field must be omitted.
func coerce(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", true
	case []string:
		if v == nil {
			v = []string{}
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(encoded), true
	case *bool:
		if v == nil {
			return "", true
		}
		return strconv.FormatBool(*v), true
	case bool:
		return strconv.FormatBool(v), true
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	default:
		s := fmt.Sprint(v)
		return s, s != ""
	}
}

// Value returns the text field name.
func (p Payload) Value(name string) (string, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Values returns the text fields as a map.
func (p Payload) Values() map[string]string {
	m := make(map[string]string, len(p.Fields))
	for _, f := range p.Fields {
		m[f.Name] = f.Value
	}
	return m
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Encode renders the payload as multipart/form-data and returns the body with its content type.
func (p Payload) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range p.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", errors.Wrap(err, "write field", slog.String("field", f.Name))
		}
	}
	for _, image := range p.Images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			ImagesField, quoteEscaper.Replace(image.Filename)))
		h.Set("Content-Type", image.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", errors.Wrap(err, "create image part", slog.String("filename", image.Filename))
		}
		if _, err = part.Write(image.Data); err != nil {
			return nil, "", errors.Wrap(err, "write image part", slog.String("filename", image.Filename))
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "close multipart writer")
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
