package embedding

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindDecode, Err: errors.New("png: invalid format")}, "Invalid or corrupted image file"},
		{&Error{Kind: KindNoFace}, "No face detected."},
		{&Error{Kind: KindMultipleFaces, Count: 2}, "Multiple faces detected (2). Only one face is allowed."},
		{&Error{Kind: KindEmbeddingMissing}, "Failed to extract face embedding."},
		{&Error{Kind: KindExtraction, Err: errors.New("model crashed")}, "model crashed"},
		{&Error{Kind: KindExtraction, Err: errors.New("")}, "face extraction failed"},
		{&Error{Kind: KindExtraction}, "face extraction failed"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("%s: Error() = %q, want %q", tc.err.Kind, got, tc.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("image1: %w", &Error{Kind: KindNoFace})
	if got := KindOf(wrapped); got != KindNoFace {
		t.Fatalf("KindOf = %v, want %v", got, KindNoFace)
	}
	if got := KindOf(errors.New("plain")); got != 0 || got.String() != "unknown" {
		t.Fatalf("KindOf(plain) = %v", got)
	}
	if KindMultipleFaces.String() != "multiple_faces" {
		t.Fatalf("unexpected name %q", KindMultipleFaces.String())
	}
}
