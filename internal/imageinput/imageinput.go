// Package imageinput turns the image representations a wizard slot can hold into submission-ready images.
package imageinput

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/myrjola/skinwise/internal/errors"
)

var (
	ErrIncompleteImages = errors.NewSentinel("all three face images are required")
	ErrMalformedDataURI = errors.NewSentinel("malformed data URI")
	ErrEmptyImage       = errors.NewSentinel("image is empty")
	ErrAmbiguousSlot    = errors.NewSentinel("slot holds both a data URI and a file")
)

// DefaultContentType is assumed when a data URI does not declare its MIME type.
const DefaultContentType = "image/jpeg"

// Position identifies one of the three face photos.
type Position string

const (
	Front Position = "front"
	Left  Position = "left"
	Right Position = "right"
)

// Positions lists the slots in submission order.
var Positions = []Position{Front, Left, Right} //nolint:gochecknoglobals // fixed enumeration.

// ParsePosition maps the textual name of a position to a Position.
func ParsePosition(s string) (Position, bool) {
	for _, p := range Positions {
		if string(p) == strings.ToLower(strings.TrimSpace(s)) {
			return p, true
		}
	}
	return "", false
}

// Filename is the name the image is transmitted with, e.g. front-face.jpg.
func (p Position) Filename() string {
	return string(p) + "-face.jpg"
}

// FileHandle is an already-binary image, e.g. read from disk or a multipart upload.
type FileHandle struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data,omitempty"`
}

// Kind tells what a Slot currently holds.
type Kind int

const (
	KindEmpty Kind = iota
	KindInline
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindFile:
		return "file"
	case KindEmpty:
		return "empty"
	}
	return "unknown"
}

// Slot holds at most one image: either an inline data URI or a file handle.
//
// The zero value is an empty slot. Image bytes are treated as immutable once placed in a slot.
type Slot struct {
	DataURI string      `json:"dataUri,omitempty"`
	File    *FileHandle `json:"file,omitempty"`
}

// Inline creates a slot holding a data URI such as data:image/png;base64,iVBORw0....
func Inline(dataURI string) Slot {
	return Slot{DataURI: dataURI, File: nil}
}

// FromFile creates a slot holding binary image data.
func FromFile(name, contentType string, data []byte) Slot {
	return Slot{DataURI: "", File: &FileHandle{Name: name, ContentType: contentType, Data: data}}
}

// Kind reports what the slot holds.
func (s Slot) Kind() Kind {
	switch {
	case s.File != nil:
		return KindFile
	case s.DataURI != "":
		return KindInline
	default:
		return KindEmpty
	}
}

// IsEmpty reports whether the slot holds no image.
func (s Slot) IsEmpty() bool {
	return s.Kind() == KindEmpty
}

// Image is the binary, transmittable form of a slot.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

var mimePattern = regexp.MustCompile(`^data:([^;,]+)[;,]`)

// Normalize converts the slot at position into a transmittable image.
//
// An empty slot yields nil without error and must be left out of the submission. Inline data URIs are decoded and
// named after the position. File handles pass through, with a missing content type sniffed from the bytes.
func Normalize(position Position, slot Slot) (*Image, error) {
	if slot.File != nil && slot.DataURI != "" {
		return nil, errors.Wrap(ErrAmbiguousSlot, "normalize", slog.String("position", string(position)))
	}
	switch slot.Kind() {
	case KindEmpty:
		return nil, nil //nolint:nilnil // empty slots carry no image.
	case KindFile:
		return fromFile(position, slot.File)
	case KindInline:
		return fromDataURI(position, slot.DataURI)
	}
	return nil, nil //nolint:nilnil // unreachable.
}

func fromFile(position Position, file *FileHandle) (*Image, error) {
	if len(file.Data) == 0 {
		return nil, errors.Wrap(ErrEmptyImage, "file handle", slog.String("position", string(position)))
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(file.Data)
	}
	name := file.Name
	if name == "" {
		name = position.Filename()
	}
	return &Image{Filename: name, ContentType: contentType, Data: file.Data}, nil
}

func fromDataURI(position Position, dataURI string) (*Image, error) {
	payload := dataURI
	contentType := DefaultContentType
	if header, rest, found := strings.Cut(dataURI, ","); found {
		payload = rest
		if m := mimePattern.FindStringSubmatch(header + ","); m != nil {
			contentType = strings.ToLower(strings.TrimSpace(m[1]))
		}
	}

	data, err := decodeBase64(strings.TrimSpace(payload))
	if err != nil {
		return nil, errors.Wrap(ErrMalformedDataURI, "decode base64",
			slog.String("position", string(position)), slog.String("cause", err.Error()))
	}
	if len(data) == 0 {
		return nil, errors.Wrap(ErrEmptyImage, "data URI", slog.String("position", string(position)))
	}
	return &Image{Filename: position.Filename(), ContentType: contentType, Data: data}, nil
}

// decodeBase64 accepts the padded and unpadded variants of the standard and URL-safe alphabets.
func decodeBase64(s string) ([]byte, error) {
	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	} {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// NormalizeAll normalizes every position in order and fails unless all three slots yield an image.
func NormalizeAll(slots map[Position]Slot) ([]Image, error) {
	images := make([]Image, 0, len(Positions))
	var missing []string
	for _, position := range Positions {
		image, err := Normalize(position, slots[position])
		if err != nil {
			return nil, err
		}
		if image == nil {
			missing = append(missing, string(position))
			continue
		}
		images = append(images, *image)
	}
	if len(missing) > 0 {
		return nil, errors.Wrap(ErrIncompleteImages, "normalize images",
			slog.String("missing", strings.Join(missing, ",")))
	}
	return images, nil
}
