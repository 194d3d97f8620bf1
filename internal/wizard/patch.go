package wizard

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/imageinput"
)

var (
	ErrUnknownKey   = errors.NewSentinel("unknown answer key")
	ErrWrongKind    = errors.NewSentinel("value does not match the kind of the answer")
	ErrInvalidValue = errors.NewSentinel("invalid answer value")
)

// Patch is a single validated-on-apply change to one answer.
//
// Patches are built with the typed constructors or parsed from JSON with ParsePatch.
type Patch struct {
	key  Key
	kind Kind
	text string
	flag *bool
	list []string
	slot imageinput.Slot
}

// Key returns the answer the patch changes.
func (p Patch) Key() Key {
	return p.key
}

// SetText sets a free-text or single-choice answer. The empty string clears it.
func SetText(key Key, value string) Patch {
	kind := KindText
	if f, ok := fieldsByKey[key]; ok && f.Kind == KindChoice {
		kind = KindChoice
	}
	return Patch{key: key, kind: kind, text: value} //nolint:exhaustruct // other payloads unused.
}

// SetFlag sets a tri-state flag. nil resets it to unanswered.
func SetFlag(key Key, value *bool) Patch {
	return Patch{key: key, kind: KindFlag, flag: value} //nolint:exhaustruct // other payloads unused.
}

// SetGender selects the gender.
func SetGender(gender Gender) Patch {
	return Patch{key: KeyGender, kind: KindGender, text: string(gender)} //nolint:exhaustruct // other payloads unused.
}

// SetConcerns replaces the concern tags. Tags are trimmed and de-duplicated.
func SetConcerns(tags []string) Patch {
	return Patch{key: KeyConcerns, kind: KindList, list: tags} //nolint:exhaustruct // other payloads unused.
}

// SetImage places slot at position. An empty slot clears the position.
func SetImage(position imageinput.Position, slot imageinput.Slot) Patch {
	key := Key(string(position) + "Image")
	return Patch{key: key, kind: KindImage, slot: slot} //nolint:exhaustruct // other payloads unused.
}

func (p Patch) validate() error {
	f, ok := fieldsByKey[p.key]
	if !ok {
		return errors.Wrap(ErrUnknownKey, "validate patch", slog.String("key", string(p.key)))
	}
	if f.Kind != p.kind {
		return errors.Wrap(ErrWrongKind, "validate patch",
			slog.String("key", string(p.key)),
			slog.String("want", f.Kind.String()),
			slog.String("got", p.kind.String()))
	}
	switch f.Kind {
	case KindChoice:
		if p.text != "" && !hasOption(f.Options, p.text) {
			return errors.Wrap(ErrInvalidValue, "unknown option",
				slog.String("key", string(p.key)), slog.String("value", p.text))
		}
	case KindGender:
		if Gender(p.text) != GenderUnset && !hasOption(f.Options, p.text) {
			return errors.Wrap(ErrInvalidValue, "unknown gender", slog.String("value", p.text))
		}
	case KindImage:
		if p.slot.File != nil && p.slot.DataURI != "" {
			return errors.Wrap(imageinput.ErrAmbiguousSlot, "validate patch", slog.String("key", string(p.key)))
		}
	case KindText, KindFlag, KindList:
	}
	return nil
}

// apply merges the patch into a. It must only be called on validated patches.
func (p Patch) apply(a *Answers) {
	f := fieldsByKey[p.key]
	switch f.Kind {
	case KindText, KindChoice:
		*f.text(a) = p.text
	case KindFlag:
		var v *bool
		if p.flag != nil {
			b := *p.flag
			v = &b
		}
		*f.flag(a) = v
	case KindGender:
		a.Gender = Gender(p.text)
	case KindList:
		a.Concerns = normalizeTags(p.list)
	case KindImage:
		*a.Slot(f.image) = p.slot
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// ParsePatch decodes a JSON value for key into a typed patch.
//
// JSON null resets flags and images and clears text answers.
func ParsePatch(key string, raw json.RawMessage) (Patch, error) {
	f, ok := fieldsByKey[Key(key)]
	if !ok {
		return Patch{}, errors.Wrap(ErrUnknownKey, "parse patch", slog.String("key", key))
	}
	isNull := len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))

	wrongKind := func(err error) error {
		return errors.Wrap(ErrWrongKind, "decode patch value",
			slog.String("key", key), slog.String("want", f.Kind.String()), slog.String("cause", err.Error()))
	}

	switch f.Kind {
	case KindText, KindChoice:
		var s string
		if !isNull {
			if err := json.Unmarshal(raw, &s); err != nil {
				return Patch{}, wrongKind(err)
			}
		}
		return SetText(f.Key, s), nil
	case KindGender:
		var s string
		if !isNull {
			if err := json.Unmarshal(raw, &s); err != nil {
				return Patch{}, wrongKind(err)
			}
		}
		return SetGender(Gender(s)), nil
	case KindFlag:
		var b *bool
		if !isNull {
			if err := json.Unmarshal(raw, &b); err != nil {
				return Patch{}, wrongKind(err)
			}
		}
		return SetFlag(f.Key, b), nil
	case KindList:
		var tags []string
		if !isNull {
			if err := json.Unmarshal(raw, &tags); err != nil {
				return Patch{}, wrongKind(err)
			}
		}
		return SetConcerns(tags), nil
	case KindImage:
		var uri string
		if !isNull {
			if err := json.Unmarshal(raw, &uri); err != nil {
				return Patch{}, wrongKind(err)
			}
		}
		return SetImage(f.image, imageinput.Inline(uri)), nil
	}
	return Patch{}, errors.Wrap(ErrUnknownKey, "parse patch", slog.String("key", key))
}

// ParsePatches decodes a JSON object of answers into patches in key order. All errors are reported together.
func ParsePatches(values map[string]json.RawMessage) ([]Patch, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	patches := make([]Patch, 0, len(keys))
	var errs []error
	for _, k := range keys {
		p, err := ParsePatch(k, values[k])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err = p.validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		patches = append(patches, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return patches, nil
}
