package embedding

import (
	"errors"
	"fmt"
)

// Kind classifies why an embedding could not be produced.
type Kind int

const (
	KindDecode Kind = iota + 1
	KindNoFace
	KindMultipleFaces
	KindEmbeddingMissing
	KindExtraction
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindNoFace:
		return "no_face"
	case KindMultipleFaces:
		return "multiple_faces"
	case KindEmbeddingMissing:
		return "embedding_missing"
	case KindExtraction:
		return "extraction"
	default:
		return "unknown"
	}
}

// Error is returned by Service.Extract. Its message is shown to API clients
// verbatim.
type Error struct {
	Kind  Kind
	Count int // faces found, set for KindMultipleFaces
	Err   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDecode:
		return "Invalid or corrupted image file"
	case KindNoFace:
		return "No face detected."
	case KindMultipleFaces:
		return fmt.Sprintf("Multiple faces detected (%d). Only one face is allowed.", e.Count)
	case KindEmbeddingMissing:
		return "Failed to extract face embedding."
	}
	if e.Err != nil {
		if msg := e.Err.Error(); msg != "" {
			return msg
		}
	}
	return "face extraction failed"
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of an *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var embErr *Error
	if errors.As(err, &embErr) {
		return embErr.Kind
	}
	return 0
}
