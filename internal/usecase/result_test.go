package usecase

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFormatDecimal(t *testing.T) {
	cases := map[float64]string{
		100:                "100.0",
		87.654:             "87.65",
		0.5349:             "0.53",
		0:                  "0.0",
		-0.001:             "0.0",
		30.000000000000004: "30.0",
		12.5:               "12.5",
	}
	for in, want := range cases {
		if got := formatDecimal(in); got != want {
			t.Errorf("formatDecimal(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestPayloadSuccess(t *testing.T) {
	result := &ComparisonResult{Match: true, Similarity: 0.87654, ProcessingTime: 1530 * time.Millisecond}
	payload := result.Payload()

	if payload["match"] != MatchYes {
		t.Fatalf("unexpected match %v", payload["match"])
	}
	if payload["similarity_score"] != "87.65%" {
		t.Fatalf("unexpected score %v", payload["similarity_score"])
	}
	if payload["Processing time"] != "1.53seconds" {
		t.Fatalf("unexpected processing time %v", payload["Processing time"])
	}
	if _, ok := payload["message"]; ok {
		t.Fatal("message must be omitted on success")
	}
}

func TestPayloadFailureEncoding(t *testing.T) {
	body, err := json.Marshal(failure("No face detected.", time.Second).Payload())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"match":"NO ❌","message":"No face detected.","similarity_score":0.0}`
	if string(body) != want {
		t.Fatalf("body = %s, want %s", body, want)
	}
}

func TestFailureWithoutMessage(t *testing.T) {
	result := failure("", time.Second)
	if !result.Failed() {
		t.Fatal("expected failed result")
	}
	payload := result.Payload()
	if payload["message"] != MessageComparisonFailed {
		t.Fatalf("unexpected message %v", payload["message"])
	}
	if _, ok := payload["Processing time"]; ok {
		t.Fatal("processing time must be omitted on failure")
	}
}
