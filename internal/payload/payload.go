package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPayload is returned when a bundle carries keys outside the
// recognized set (text, images, audio) or a blob cannot be interpreted.
var ErrInvalidPayload = errors.New("invalid content payload")

// FileDescriptor points at a stored upload. Media metadata (dimensions,
// duration, channels, sample rate) is filled on a best-effort basis and may
// be absent.
type FileDescriptor struct {
	Filename   string    `json:"filename,omitempty"`
	Path       string    `json:"path"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	MIMEType   string    `json:"mime_type"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	Duration   float64   `json:"duration,omitempty"`
	Channels   int       `json:"channels,omitempty"`
	SampleRate int       `json:"sample_rate,omitempty"`
	UploadedAt time.Time `json:"uploaded_at,omitempty"`
}

// Bundle is the heterogeneous attachment set carried by a submission or a
// feedback record. The codec knows nothing about assignment kinds; which
// keys are legal for a given assignment is decided one layer up.
type Bundle struct {
	Text   string           `json:"text,omitempty"`
	Images []FileDescriptor `json:"images,omitempty"`
	Audio  *FileDescriptor  `json:"audio,omitempty"`
}

func (b Bundle) IsEmpty() bool {
	return b.Text == "" && len(b.Images) == 0 && b.Audio == nil
}

func (b Bundle) HasAudio() bool {
	return b.Audio != nil
}

func (b Bundle) HasVisual() bool {
	return b.Text != "" || len(b.Images) > 0
}

// Encode serializes a bundle to its stored blob form. An empty bundle
// encodes to a nil blob so that Decode(Encode(b)) == b holds for the zero
// value as well.
func Encode(b Bundle) ([]byte, error) {
	if b.IsEmpty() {
		return nil, nil
	}
	blob, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return blob, nil
}

// Decode parses a stored blob back into a bundle. A nil or empty blob is
// not an error and yields an empty bundle. Unknown keys in the blob are
// rejected.
func Decode(blob []byte) (Bundle, error) {
	var b Bundle
	if len(blob) == 0 {
		return b, nil
	}

	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return b, nil
}

// FromMap builds a bundle from a loosely-typed mapping, rejecting any key
// outside the recognized set. This is the entry point for caller-supplied
// content (JSON request bodies); typed construction cannot introduce
// unknown keys.
func FromMap(m map[string]interface{}) (Bundle, error) {
	for key := range m {
		switch key {
		case "text", "images", "audio":
		default:
			return Bundle{}, fmt.Errorf("%w: unrecognized key %q", ErrInvalidPayload, key)
		}
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return Decode(raw)
}

// Merge applies patch onto base: images append, text and audio replace when
// the patch carries them.
func Merge(base, patch Bundle) Bundle {
	merged := base
	if patch.Text != "" {
		merged.Text = patch.Text
	}
	if len(patch.Images) > 0 {
		merged.Images = append(append([]FileDescriptor{}, base.Images...), patch.Images...)
	}
	if patch.Audio != nil {
		merged.Audio = patch.Audio
	}
	return merged
}

// Files lists every descriptor referenced by the bundle.
func (b Bundle) Files() []FileDescriptor {
	files := make([]FileDescriptor, 0, len(b.Images)+1)
	files = append(files, b.Images...)
	if b.Audio != nil {
		files = append(files, *b.Audio)
	}
	return files
}
