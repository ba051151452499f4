package model

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies one media namespace. Short IDs are unique within a kind only.
type Kind string

const (
	KindVideo        Kind = "video"
	KindEnglishAudio Kind = "englishAudio"
	KindHindiAudio   Kind = "hindiAudio"
)

// Kinds lists every kind in canonical order.
var Kinds = []Kind{KindVideo, KindEnglishAudio, KindHindiAudio}

var (
	ErrUnknownKind  = errors.New("unknown media kind")
	ErrEmptyShortID = errors.New("short ID cannot be empty")
	ErrEmptyObject  = errors.New("upstream object ID cannot be empty")
	ErrInvalidRef   = errors.New("invalid media reference")
)

func (k Kind) IsValid() bool {
	switch k {
	case KindVideo, KindEnglishAudio, KindHindiAudio:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// Segment returns the URL path segment used for this kind ("video", "english", "hindi").
func (k Kind) Segment() string {
	switch k {
	case KindEnglishAudio:
		return "english"
	case KindHindiAudio:
		return "hindi"
	default:
		return "video"
	}
}

// CollectionKey is the JSON key used when media are grouped by kind.
func (k Kind) CollectionKey() string {
	if k == KindVideo {
		return "videos"
	}
	return string(k)
}

// IsAudio reports whether the kind is one of the audio namespaces.
func (k Kind) IsAudio() bool {
	return k == KindEnglishAudio || k == KindHindiAudio
}

// FallbackContentType is served when the upstream omits Content-Type.
func (k Kind) FallbackContentType() string {
	if k.IsAudio() {
		return "audio/mpeg"
	}
	return "video/mp4"
}

// Noun is the lower-case media noun used in client-facing messages.
func (k Kind) Noun() string {
	if k.IsAudio() {
		return "audio"
	}
	return "video"
}

// Label names a kind in not-found messages: "Video" or "english audio".
func (k Kind) Label() string {
	if k.IsAudio() {
		return k.Segment() + " audio"
	}
	return "Video"
}

// ParseKind maps a path segment to a Kind. Matching is exact.
func ParseKind(segment string) (Kind, error) {
	switch segment {
	case "video":
		return KindVideo, nil
	case "english":
		return KindEnglishAudio, nil
	case "hindi":
		return KindHindiAudio, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, segment)
	}
}

// ParseAudioLang maps the {lang} segment of an audio path to a Kind.
func ParseAudioLang(lang string) (Kind, error) {
	switch lang {
	case "english":
		return KindEnglishAudio, nil
	case "hindi":
		return KindHindiAudio, nil
	default:
		return "", fmt.Errorf("%w: audio language %q", ErrUnknownKind, lang)
	}
}

// MediaEntry maps a public short ID to the object that backs it upstream.
// Entries are created once at start-up and never mutated.
type MediaEntry struct {
	ShortID          string
	UpstreamObjectID string
	Kind             Kind
}

// NewMediaEntry validates and builds a MediaEntry.
func NewMediaEntry(kind Kind, shortID, objectID string) (MediaEntry, error) {
	if !kind.IsValid() {
		return MediaEntry{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if shortID == "" {
		return MediaEntry{}, ErrEmptyShortID
	}
	if objectID == "" {
		return MediaEntry{}, fmt.Errorf("%w: %s/%s", ErrEmptyObject, kind.Segment(), shortID)
	}
	return MediaEntry{ShortID: shortID, UpstreamObjectID: objectID, Kind: kind}, nil
}

// Ref returns the lookup key of the entry.
func (e MediaEntry) Ref() MediaRef {
	return MediaRef{Kind: e.Kind, ShortID: e.ShortID}
}

// MediaRef is a (kind, short ID) lookup key.
type MediaRef struct {
	Kind    Kind
	ShortID string
}

// String formats the ref as "<segment>/<id>", e.g. "english/a1".
func (r MediaRef) String() string {
	return r.Kind.Segment() + "/" + r.ShortID
}

// ParseMediaRef parses the "<segment>/<id>" form produced by String.
func ParseMediaRef(s string) (MediaRef, error) {
	segment, id, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || id == "" {
		return MediaRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	kind, err := ParseKind(segment)
	if err != nil {
		return MediaRef{}, err
	}
	return MediaRef{Kind: kind, ShortID: id}, nil
}
